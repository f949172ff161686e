// controller/access_controller.go
package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/boundary/adapter/slackapi"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/util"
	"github.com/dev-mohitbeniwal/boundary/workflow"
)

// CommandProcessor runs one access request end to end.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, cmd workflow.Command) workflow.Result
}

// slashCommandForm is the application/x-www-form-urlencoded payload of
// a slash command invocation.
type slashCommandForm struct {
	Command     string `form:"command"`
	Text        string `form:"text"`
	UserID      string `form:"user_id"`
	ResponseURL string `form:"response_url"`
	ChannelID   string `form:"channel_id"`
}

// AccessController accepts slash commands, acknowledges them within
// the chat platform's response deadline, and runs the pipeline in the
// background. The outcome arrives later via the response_url.
type AccessController struct {
	processor CommandProcessor
	deadline  time.Duration
}

func NewAccessController(processor CommandProcessor, deadline time.Duration) *AccessController {
	return &AccessController{processor: processor, deadline: deadline}
}

func (ctrl *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/commands", ctrl.HandleSlashCommand)
}

func (ctrl *AccessController) HandleSlashCommand(c *gin.Context) {
	var form slashCommandForm
	if err := c.ShouldBind(&form); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid command payload", err)
		return
	}
	if form.UserID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing user id", nil)
		return
	}
	if form.ResponseURL != "" {
		if err := slackapi.ValidateResponseURL(form.ResponseURL); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid response url", err)
			return
		}
	}

	cmd := workflow.Command{
		UserID:      form.UserID,
		Text:        form.Text,
		ResponseURL: form.ResponseURL,
		ChannelID:   form.ChannelID,
	}

	// Acknowledge immediately; the pipeline is slower than the chat
	// platform's 3 second response window.
	c.JSON(http.StatusOK, gin.H{
		"response_type": "ephemeral",
		"text":          "Processing your access request...",
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ctrl.deadline)
		defer cancel()

		result := ctrl.processor.ProcessCommand(ctx, cmd)
		logger.Info("Command processed",
			zap.String("decision", result.Decision),
			zap.String("requestID", result.RequestID))
	}()
}
