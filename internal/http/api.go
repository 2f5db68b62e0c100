package http

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"pipersmart/internal/domain"
	"pipersmart/internal/identity"
	"pipersmart/internal/service"
	"pipersmart/internal/storage"
	"pipersmart/internal/token"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	notes   service.NoteService
	content service.ContentService
	chat    service.ChatService
	issuer  *token.Issuer
	storage storage.Service
	bucket  string
	// keyPrefix namespaces avatar objects inside the bucket.
	keyPrefix string
	// publicURL is the base under which uploaded objects are reachable;
	// empty falls back to presigned URLs.
	publicURL string
	logger    logrus.FieldLogger
}

func NewHandler(
	users service.UserService,
	notes service.NoteService,
	content service.ContentService,
	chat service.ChatService,
	issuer *token.Issuer,
	store storage.Service,
	bucket, keyPrefix, publicURL string,
	logger logrus.FieldLogger,
) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:     users,
		notes:     notes,
		content:   content,
		chat:      chat,
		issuer:    issuer,
		storage:   store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(metricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.POST("/google", h.federatedLogin(domain.ProviderGoogle))
			auth.POST("/facebook", h.federatedLogin(domain.ProviderFacebook))
		}

		api.GET("/news", h.listNews)
		api.GET("/news/:id", h.getNews)
		api.GET("/stats", h.listStatistics)

		authed := api.Group("")
		authed.Use(authMiddleware(h.issuer))
		{
			authed.GET("/me", h.me)
			authed.PUT("/me", h.updateProfile)
			authed.POST("/me/avatar", h.uploadAvatar)

			authed.GET("/notes", h.listNotes)
			authed.POST("/notes", h.createNote)
			authed.GET("/notes/:id", h.getNote)
			authed.PUT("/notes/:id", h.updateNote)
			authed.DELETE("/notes/:id", h.deleteNote)

			authed.POST("/chat", h.askChat)

			admin := authed.Group("/admin")
			admin.Use(requireAdmin())
			{
				admin.GET("/overview", h.adminOverview)
				admin.GET("/media", h.listMedia)
				admin.DELETE("/media/*key", h.deleteMedia)
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type federatedLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// UserResponse mirrors the user payload embedded in auth responses. The
// legacy "_id" key is kept for existing clients.
type UserResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar,omitempty"`
}

type sessionResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name, email and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"message": "user already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	h.respondSession(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		case errors.Is(err, service.ErrProviderConflict):
			c.JSON(http.StatusConflict, gin.H{"message": "this email signs in with a federated provider"})
		default:
			h.logger.WithError(err).Error("local login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		}
		return
	}

	h.respondSession(c, http.StatusOK, user)
}

func (h *Handler) federatedLogin(provider domain.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req federatedLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "idToken is required"})
			return
		}

		user, err := h.users.AuthenticateFederated(c.Request.Context(), provider, req.IDToken)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrTokenRejected):
				c.JSON(http.StatusUnauthorized, gin.H{"message": "identity token was rejected"})
			case errors.Is(err, service.ErrProviderConflict):
				c.JSON(http.StatusConflict, gin.H{"message": "email is linked to a different sign-in method"})
			default:
				h.logger.WithError(err).WithField("provider", provider).Error("federated login failed")
				c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
			}
			return
		}

		h.respondSession(c, http.StatusOK, user)
	}
}

func (h *Handler) respondSession(c *gin.Context, status int, user *domain.User) {
	signed, err := h.issuer.Mint(user)
	if err != nil {
		h.logger.WithError(err).Error("mint session token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}
	c.JSON(status, sessionResponse{
		Success: true,
		Token:   signed,
		User:    userToResponse(user),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid profile payload"})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), req.Name, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "update failed"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "media storage not configured"})
		return
	}

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "avatar file is required"})
		return
	}
	defer file.Close()

	if header.Size > 5<<20 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "avatar must be under 5MB"})
		return
	}

	ext := strings.ToLower(path.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "avatar must be png, jpg or webp"})
		return
	}

	userID := currentUserID(c)
	key := fmt.Sprintf("%s/user-%d/%s%s", h.keyPrefix, userID, uuid.NewString(), ext)
	key = strings.Trim(key, "/")

	if _, err := h.storage.UploadObject(c.Request.Context(), storage.UploadInput{
		Bucket:      h.bucket,
		Key:         key,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}); err != nil {
		h.logger.WithError(err).Error("avatar upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"message": "avatar upload failed"})
		return
	}

	avatarURL, err := h.resolveObjectURL(c, key)
	if err != nil {
		h.logger.WithError(err).Error("resolve avatar url")
		c.JSON(http.StatusBadGateway, gin.H{"message": "avatar upload failed"})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, "", avatarURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "update failed"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) resolveObjectURL(c *gin.Context, key string) (string, error) {
	if h.publicURL != "" {
		return h.publicURL + "/" + key, nil
	}
	return h.storage.GetObjectURL(c.Request.Context(), h.bucket, key, 7*24*time.Hour)
}

type noteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type NoteResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) listNotes(c *gin.Context) {
	notes, err := h.notes.ListNotes(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]NoteResponse, len(notes))
	for i := range notes {
		resp[i] = noteToResponse(notes[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.notes.CreateNote(c.Request.Context(), currentUserID(c), req.Title, req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, noteToResponse(*note))
}

func (h *Handler) getNote(c *gin.Context) {
	note, err := h.notes.GetNote(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	c.JSON(http.StatusOK, noteToResponse(*note))
}

func (h *Handler) updateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.notes.UpdateNote(c.Request.Context(), currentUserID(c), c.Param("id"), req.Title, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, noteToResponse(*note))
}

func (h *Handler) deleteNote(c *gin.Context) {
	id := c.Param("id")
	if err := h.notes.DeleteNote(c.Request.Context(), currentUserID(c), id); err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type NewsResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Body        string   `json:"body,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Tags        []string `json:"tags"`
	PublishedAt string   `json:"published_at"`
}

type StatisticResponse struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Region string  `json:"region"`
	Year   int     `json:"year"`
}

func (h *Handler) listNews(c *gin.Context) {
	items, err := h.content.ListNews(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]NewsResponse, len(items))
	for i := range items {
		resp[i] = newsToResponse(items[i], false)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getNews(c *gin.Context) {
	item, err := h.content.GetNews(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "news item not found"})
		return
	}
	c.JSON(http.StatusOK, newsToResponse(*item, true))
}

func (h *Handler) listStatistics(c *gin.Context) {
	stats, err := h.content.ListStatistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StatisticResponse, len(stats))
	for i := range stats {
		resp[i] = StatisticResponse{
			ID:     stats[i].ID,
			Label:  stats[i].Label,
			Value:  stats[i].Value,
			Unit:   stats[i].Unit,
			Region: stats[i].Region,
			Year:   stats[i].Year,
		}
	}
	c.JSON(http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) askChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := h.chat.Ask(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, service.ErrChatUnavailable) {
			h.logger.WithError(err).Warn("chat upstream failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "chat assistant is unavailable"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) adminOverview(c *gin.Context) {
	users, err := h.users.CountUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	notes, err := h.notes.CountNotes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "notes": notes})
}

type MediaObjectResponse struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified,omitempty"`
}

func (h *Handler) listMedia(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "media storage not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, h.keyPrefix)
	if err != nil {
		h.logger.WithError(err).Error("list media objects")
		c.JSON(http.StatusBadGateway, gin.H{"error": "media listing failed"})
		return
	}

	resp := make([]MediaObjectResponse, len(objects))
	for i, obj := range objects {
		resp[i] = MediaObjectResponse{Key: obj.Key, Size: obj.Size}
		if obj.LastModified != nil {
			resp[i].LastModified = obj.LastModified.Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteMedia(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "media storage not configured"})
		return
	}

	key := strings.Trim(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object key is required"})
		return
	}
	// deletions stay inside the avatar namespace
	if h.keyPrefix != "" && !strings.HasPrefix(key, h.keyPrefix+"/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object key is outside the media prefix"})
		return
	}

	if err := h.storage.DeleteObject(c.Request.Context(), h.bucket, key); err != nil {
		h.logger.WithError(err).WithField("key", key).Error("delete media object")
		c.JSON(http.StatusBadGateway, gin.H{"error": "media deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        fmt.Sprintf("%d", user.ID),
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		AvatarURL: user.AvatarURL,
	}
}

func noteToResponse(note domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Body:      note.Body,
		CreatedAt: note.CreatedAt.Format(time.RFC3339),
		UpdatedAt: note.UpdatedAt.Format(time.RFC3339),
	}
}

func newsToResponse(item domain.NewsItem, includeBody bool) NewsResponse {
	resp := NewsResponse{
		ID:          item.ID,
		Title:       item.Title,
		Summary:     item.Summary,
		ImageURL:    item.ImageURL,
		Tags:        item.Tags,
		PublishedAt: item.PublishedAt.Format(time.RFC3339),
	}
	if includeBody {
		resp.Body = item.Body
	}
	return resp
}
