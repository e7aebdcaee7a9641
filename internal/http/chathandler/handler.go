package chathandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroomgo/internal/auth"
	"chatroomgo/internal/core"
	"chatroomgo/internal/services/chat"
)

type Handler struct {
	svc    chat.IChatService
	issuer auth.Issuer
}

func New(svc chat.IChatService, issuer auth.Issuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/login", h.login)
	r.GET("/rooms", h.listRooms)
	r.POST("/rooms", h.createRoom)
	r.POST("/rooms/:id/members", h.addMember)
	r.GET("/rooms/:id/messages", h.history)
}

// login issues a credential for the websocket handshake. It stands in for
// the external identity provider; password workflows stay out of scope.
func (h *Handler) login(ginCtx *gin.Context) {
	var body LoginBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.issuer.Issue(core.Identity{ID: body.UserID, Name: body.DisplayName})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (h *Handler) createRoom(ginCtx *gin.Context) {
	var body CreateRoomBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.svc.CreateRoom(ginCtx.Request.Context(), body.Name, h.callerID(ginCtx))
	if err != nil {
		ginCtx.JSON(http.StatusConflict, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, dto)
}

func (h *Handler) addMember(ginCtx *gin.Context) {
	var body AddMemberBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	err := h.svc.AddMember(ginCtx.Request.Context(), ginCtx.Param("id"), body.Identity)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ginCtx.JSON(status, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusNoContent)
}

func (h *Handler) listRooms(ginCtx *gin.Context) {
	var q ListRoomsQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	out, err := h.svc.ListRooms(ginCtx.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

func (h *Handler) history(ginCtx *gin.Context) {
	var q HistoryQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	out, err := h.svc.History(ginCtx.Request.Context(), ginCtx.Param("id"), q.Limit, q.Before)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// callerID reads the authenticated caller set by the auth middleware,
// falling back to anonymous for unauthenticated room creation in dev.
func (h *Handler) callerID(ginCtx *gin.Context) string {
	if v, ok := ginCtx.Get("identity"); ok {
		if ident, ok := v.(core.Identity); ok {
			return ident.ID
		}
	}
	return "anonymous"
}
