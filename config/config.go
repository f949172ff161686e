// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	AWS           AWSConfiguration
	Dynamo        DynamoConfiguration
	Rules         RulesConfiguration
	Slack         SlackConfiguration
	Elasticsearch ElasticsearchConfiguration
	Janitor       JanitorConfiguration
	Cache         CacheConfiguration
	Workflow      WorkflowConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// AWSConfiguration stores the region and the Identity Center coordinates
type AWSConfiguration struct {
	Region          string
	IdentityStoreID string
	InstanceArn     string
}

// DynamoConfiguration stores the state table settings
type DynamoConfiguration struct {
	Table string
}

// RulesConfiguration stores the access rule file location
type RulesConfiguration struct {
	Path           string
	GlobalMaxHours float64
}

// SlackConfiguration stores the SSM parameter names for Slack secrets.
// The secret values themselves never live in the config file.
type SlackConfiguration struct {
	SigningSecretParam string
	BotTokenParam      string
}

// ElasticsearchConfiguration stores data for the audit sink connection
type ElasticsearchConfiguration struct {
	URL string
}

// JanitorConfiguration stores the sweep cadence and escalation bound
type JanitorConfiguration struct {
	Interval          time.Duration
	MaxRevokeAttempts int
}

// CacheConfiguration stores the resolver cache bounds
type CacheConfiguration struct {
	Size int
	TTL  time.Duration
}

// WorkflowConfiguration stores the per-request deadline
type WorkflowConfiguration struct {
	Deadline time.Duration
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("dynamo.table", "boundary-access-requests")
	viper.SetDefault("rules.path", "config/access_rules.yaml")
	viper.SetDefault("rules.globalMaxHours", 8.0)
	viper.SetDefault("slack.signingSecretParam", "/boundary/slack/signing-secret")
	viper.SetDefault("slack.botTokenParam", "/boundary/slack/bot-token")
	viper.SetDefault("elasticsearch.url", "")
	viper.SetDefault("janitor.interval", "1m")
	viper.SetDefault("janitor.maxRevokeAttempts", 5)
	viper.SetDefault("cache.size", 1000)
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("workflow.deadline", "30s")
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")
	viper.SetDefault("log.dir", "logging")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 retrieves a float64 value from the configuration
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
