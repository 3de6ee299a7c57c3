package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mynaparrot/plugnmeet-translate/pkg/models"
)

// TranscriptController holds dependencies for transcript related handlers.
type TranscriptController struct {
	tm *models.TranscriptModel
}

func NewTranscriptController(tm *models.TranscriptModel) *TranscriptController {
	return &TranscriptController{
		tm: tm,
	}
}

// HandleListTranscripts returns a room's messages oldest first. The empty
// flag is the "room is empty" signal for renderers.
func (tc *TranscriptController) HandleListTranscripts(c *fiber.Ctx) error {
	roomId := c.Params("roomId")
	if roomId == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    "roomId required",
		})
	}

	msgs, err := tc.tm.Fetch(roomId)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":   true,
		"roomId":   roomId,
		"empty":    len(msgs) == 0,
		"messages": msgs,
	})
}

// HandleExportTranscripts streams a room's transcript as a UTF-8 CSV download.
func (tc *TranscriptController) HandleExportTranscripts(c *fiber.Ctx) error {
	roomId := c.Params("roomId")
	if roomId == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    "roomId required",
		})
	}

	fileName := fmt.Sprintf("meeting_transcript_%s_%s.csv", roomId, time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))

	if _, err := tc.tm.ExportCSV(c.Response().BodyWriter(), roomId); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return nil
}
