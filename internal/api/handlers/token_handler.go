package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayush-jadaun/midnfull/internal/services"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

type TokenHandler struct {
	svc services.TokenService
}

func NewTokenHandler(svc services.TokenService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

type TokenRequest struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Issue handles POST /livekit/token with a JSON body.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TokenHandler.Issue", "invalid request body", err))
		return
	}

	token, err := h.svc.IssueRoomToken(req.Identity, req.Room, 0)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// IssueForRoom handles the path variant POST /livekit/token/:room_id?user_id=.
func (h *TokenHandler) IssueForRoom(c *gin.Context) {
	room := c.Param("room_id")
	identity := c.Query("user_id")

	token, err := h.svc.IssueRoomToken(identity, room, 0)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
