package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trandvq/docsense/service"
	"github.com/trandvq/docsense/types"
)

type ChatHandler struct {
	chat *service.ChatEngine
}

func NewChatHandler(chat *service.ChatEngine) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "invalid request body",
		})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "query is required",
		})
		return
	}

	resp, err := h.chat.Answer(c.Request.Context(), types.ChatQuery{
		Query:               req.Query,
		ConversationHistory: req.History,
		Options:             req.Options,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   resp,
	})
}
