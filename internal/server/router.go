// Package server exposes the HTTP surface: auth, feed, note detail with
// optimistic interactions, shop, messaging, profile, and the realtime
// websocket endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plumeworks/plume/backend/internal/entity"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"github.com/plumeworks/plume/backend/internal/identity"
	"github.com/plumeworks/plume/backend/internal/messaging"
	"github.com/plumeworks/plume/backend/internal/overrides"
	"github.com/plumeworks/plume/backend/internal/realtime"
	"github.com/plumeworks/plume/backend/internal/reconcile"
	"github.com/plumeworks/plume/backend/internal/seed"
)

const userIDContextKey = "plume_user_id"

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingIdentityService  = errors.New("identity service dependency required")
	errMissingGatewayService   = errors.New("gateway service dependency required")
	errMissingMessagingService = errors.New("messaging service dependency required")
	errMissingOverrideStore    = errors.New("override store dependency required")
	errMissingSeedCatalog      = errors.New("seed catalog dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	IssueSessionToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the services behind the HTTP handler.
type Dependencies struct {
	Tokens     TokenManager
	Identity   *identity.Service
	Gateway    *gateway.Service
	Messaging  *messaging.Service
	Overrides  *overrides.Store
	Seeds      *seed.Catalog
	Dispatcher *realtime.Dispatcher
	Logger     *zap.Logger
}

// NewHTTPHandler validates dependencies and builds the gin router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Identity == nil {
		return nil, errMissingIdentityService
	}
	if deps.Gateway == nil {
		return nil, errMissingGatewayService
	}
	if deps.Messaging == nil {
		return nil, errMissingMessagingService
	}
	if deps.Overrides == nil {
		return nil, errMissingOverrideStore
	}
	if deps.Seeds == nil {
		return nil, errMissingSeedCatalog
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:     deps.Tokens,
		identity:   deps.Identity,
		gateway:    deps.Gateway,
		messaging:  deps.Messaging,
		overrides:  deps.Overrides,
		seeds:      deps.Seeds,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/notes", handler.handleFeed)
	router.GET("/products", handler.handleProducts)

	// Note detail resolves interaction flags when a bearer token is present.
	router.GET("/notes/:id", handler.optionalAuthorize, handler.handleNoteDetail)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/notes", handler.handleCreateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)
	protected.POST("/notes/:id/like", handler.handleToggleLike)
	protected.POST("/notes/:id/collect", handler.handleToggleCollect)
	protected.POST("/notes/:id/follow", handler.handleToggleFollow)
	protected.POST("/notes/:id/comments", handler.handleAddComment)
	protected.GET("/conversations", handler.handleConversations)
	protected.GET("/conversations/:peerID/messages", handler.handleThread)
	protected.POST("/messages", handler.handleSendMessage)
	protected.GET("/profile", handler.handleGetProfile)
	protected.PUT("/profile", handler.handleUpdateProfile)

	router.GET("/ws", handler.handleWebsocket)

	return router, nil
}

type httpHandler struct {
	tokens     TokenManager
	identity   *identity.Service
	gateway    *gateway.Service
	messaging  *messaging.Service
	overrides  *overrides.Store
	seeds      *seed.Catalog
	dispatcher *realtime.Dispatcher
	logger     *zap.Logger
}

type credentialsPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.identity.Register(c.Request.Context(), request.Email, request.Password, request.DisplayName)
	if errors.Is(err, identity.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	h.respondWithSession(c, session)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.identity.Login(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	h.respondWithSession(c, session)
}

func (h *httpHandler) respondWithSession(c *gin.Context, session identity.Session) {
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      session.UserID,
		DisplayName: session.DisplayName,
		AvatarURL:   session.AvatarURL,
	})
}

type feedItemPayload struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	AuthorID      string    `json:"author_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ImageURL      string    `json:"image_url,omitempty"`
	LikesCount    int64     `json:"likes_count"`
	CollectsCount int64     `json:"collects_count"`
	CommentsCount int64     `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// handleFeed lists remote notes newest first followed by the bundled seed
// notes, so a fresh deployment still renders a populated feed.
func (h *httpHandler) handleFeed(c *gin.Context) {
	remote, err := h.gateway.ListNotes(c.Request.Context(), 0)
	if err != nil {
		h.logger.Error("feed query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed_failed"})
		return
	}

	items := make([]feedItemPayload, 0, len(remote))
	for _, note := range remote {
		items = append(items, feedItemPayload{
			ID:            note.NoteID,
			Source:        string(entity.KindRemote),
			AuthorID:      note.AuthorID,
			Title:         note.Title,
			Content:       note.Content,
			ImageURL:      note.ImageURL,
			LikesCount:    note.LikesCount,
			CollectsCount: note.CollectsCount,
			CommentsCount: note.CommentsCount,
			CreatedAt:     note.CreatedAt,
		})
	}
	for _, note := range h.seeds.Notes() {
		items = append(items, feedItemPayload{
			ID:            note.ID,
			Source:        string(entity.KindSeed),
			AuthorID:      note.AuthorID,
			Title:         note.Title,
			Content:       note.Content,
			ImageURL:      note.ImageURL,
			LikesCount:    note.LikesCount,
			CollectsCount: note.CollectsCount,
			CommentsCount: note.CommentsCount,
			CreatedAt:     note.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notes": items})
}

type productPayload struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	SellerID    string `json:"seller_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (h *httpHandler) handleProducts(c *gin.Context) {
	remote, err := h.gateway.ListProducts(c.Request.Context(), 0)
	if err != nil {
		h.logger.Error("product query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "products_failed"})
		return
	}

	items := make([]productPayload, 0, len(remote))
	for _, product := range remote {
		items = append(items, productPayload{
			ID:          product.ProductID,
			Source:      string(entity.KindRemote),
			SellerID:    product.SellerID,
			Title:       product.Title,
			Description: product.Description,
			PriceCents:  product.PriceCents,
			ImageURL:    product.ImageURL,
		})
	}
	for _, product := range h.seeds.Products() {
		items = append(items, productPayload{
			ID:          product.ID,
			Source:      string(entity.KindSeed),
			SellerID:    product.SellerID,
			Title:       product.Title,
			Description: product.Description,
			PriceCents:  product.PriceCents,
			ImageURL:    product.ImageURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"products": items})
}

type commentPayload struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type noteViewPayload struct {
	Phase         string           `json:"phase"`
	ID            string           `json:"id"`
	AuthorID      string           `json:"author_id,omitempty"`
	AuthorName    string           `json:"author_name,omitempty"`
	Title         string           `json:"title,omitempty"`
	Content       string           `json:"content,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Comments      []commentPayload `json:"comments"`
	IsLiked       bool             `json:"is_liked"`
	IsCollected   bool             `json:"is_collected"`
	IsFollowing   bool             `json:"is_following"`
	LikesCount    int64            `json:"likes_count"`
	CollectsCount int64            `json:"collects_count"`
	CommentsCount int64            `json:"comments_count"`
}

func renderNoteView(view reconcile.NoteView) noteViewPayload {
	comments := make([]commentPayload, 0, len(view.Comments))
	for _, comment := range view.Comments {
		comments = append(comments, commentPayload{
			ID:        comment.ID,
			AuthorID:  comment.AuthorID,
			Author:    comment.Author,
			Text:      comment.Text,
			CreatedAt: comment.CreatedAt,
		})
	}
	return noteViewPayload{
		Phase:         string(view.Phase),
		ID:            view.NoteID,
		AuthorID:      view.AuthorID,
		AuthorName:    view.AuthorName,
		Title:         view.Title,
		Content:       view.Content,
		ImageURL:      view.ImageURL,
		CreatedAt:     view.CreatedAt,
		Comments:      comments,
		IsLiked:       view.IsLiked,
		IsCollected:   view.IsCollected,
		IsFollowing:   view.IsFollowing,
		LikesCount:    view.LikesCount,
		CollectsCount: view.CollectsCount,
		CommentsCount: view.CommentsCount,
	}
}

// noteController builds a loaded view controller for the requested note.
// session may be nil for signed-out reads.
func (h *httpHandler) noteController(ctx context.Context, noteID string, session *identity.Session) (*reconcile.Controller, reconcile.NoteView, error) {
	controller, err := reconcile.NewController(reconcile.ControllerConfig{
		NoteID:    noteID,
		Gateway:   h.gateway,
		Overrides: h.overrides,
		Seeds:     h.seeds,
		Session:   session,
		Logger:    h.logger,
	})
	if err != nil {
		return nil, reconcile.NoteView{}, err
	}
	view, err := controller.Load(ctx)
	if err != nil {
		return nil, reconcile.NoteView{}, err
	}
	return controller, view, nil
}

func (h *httpHandler) sessionFromContext(c *gin.Context) *identity.Session {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		return nil
	}
	session, err := h.identity.SessionFor(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("session lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return &session
}

func (h *httpHandler) handleNoteDetail(c *gin.Context) {
	_, view, err := h.noteController(c.Request.Context(), c.Param("id"), h.sessionFromContext(c))
	if err != nil {
		h.logger.Error("note detail load failed", zap.String("note_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	if view.Phase == reconcile.PhaseNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, renderNoteView(view))
}

type createNotePayload struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNotePayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.gateway.CreateNote(c.Request.Context(), c.GetString(userIDContextKey),
		request.Title, request.Content, request.ImageURL)
	if err != nil {
		h.logger.Error("note creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	c.JSON(http.StatusCreated, feedItemPayload{
		ID:        note.NoteID,
		Source:    string(entity.KindRemote),
		AuthorID:  note.AuthorID,
		Title:     note.Title,
		Content:   note.Content,
		ImageURL:  note.ImageURL,
		CreatedAt: note.CreatedAt,
	})
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	controller, _, err := h.noteController(c.Request.Context(), c.Param("id"), h.sessionFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}

	view, err := controller.Delete(c.Request.Context())
	if errors.Is(err, reconcile.ErrNotLoaded) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if errors.Is(err, gateway.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("note delete failed", zap.String("note_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.JSON(http.StatusOK, renderNoteView(view))
}

func (h *httpHandler) handleToggleLike(c *gin.Context) {
	h.runToggle(c, func(ctx context.Context, controller *reconcile.Controller) (reconcile.NoteView, error) {
		return controller.ToggleLike(ctx)
	})
}

func (h *httpHandler) handleToggleCollect(c *gin.Context) {
	h.runToggle(c, func(ctx context.Context, controller *reconcile.Controller) (reconcile.NoteView, error) {
		return controller.ToggleCollect(ctx)
	})
}

func (h *httpHandler) handleToggleFollow(c *gin.Context) {
	h.runToggle(c, func(ctx context.Context, controller *reconcile.Controller) (reconcile.NoteView, error) {
		return controller.ToggleFollow(ctx)
	})
}

func (h *httpHandler) runToggle(c *gin.Context, mutate func(context.Context, *reconcile.Controller) (reconcile.NoteView, error)) {
	session := h.sessionFromContext(c)
	if !session.SignedIn() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	controller, loaded, err := h.noteController(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	if loaded.Phase == reconcile.PhaseNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	view, err := mutate(c.Request.Context(), controller)
	if errors.Is(err, reconcile.ErrSignInRequired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("interaction toggle failed", zap.String("note_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle_failed"})
		return
	}
	c.JSON(http.StatusOK, renderNoteView(view))
}

type addCommentPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	var request addCommentPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session := h.sessionFromContext(c)
	if !session.SignedIn() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	controller, loaded, err := h.noteController(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	if loaded.Phase == reconcile.PhaseNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	view, err := controller.AddComment(c.Request.Context(), request.Text)
	if err != nil {
		h.logger.Error("comment creation failed", zap.String("note_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "comment_failed"})
		return
	}
	c.JSON(http.StatusCreated, renderNoteView(view))
}

type conversationPayload struct {
	PeerID          string    `json:"peer_id"`
	PeerName        string    `json:"peer_name"`
	PeerAvatarURL   string    `json:"peer_avatar_url,omitempty"`
	LastMessageText string    `json:"last_message_text"`
	LastMessageAt   time.Time `json:"last_message_at"`
	LastSenderIsMe  bool      `json:"last_sender_is_me"`
	UnreadCount     int       `json:"unread_count"`
}

func (h *httpHandler) handleConversations(c *gin.Context) {
	conversations, err := h.messaging.ListConversations(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.logger.Error("conversation list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "conversations_failed"})
		return
	}

	payload := make([]conversationPayload, 0, len(conversations))
	for _, conversation := range conversations {
		payload = append(payload, conversationPayload{
			PeerID:          conversation.PeerID,
			PeerName:        conversation.PeerName,
			PeerAvatarURL:   conversation.PeerAvatarURL,
			LastMessageText: conversation.LastMessageText,
			LastMessageAt:   conversation.LastMessageAt,
			LastSenderIsMe:  conversation.LastSenderIsMe,
			UnreadCount:     conversation.UnreadCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": payload})
}

type messagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func renderMessages(messages []gateway.Message) []messagePayload {
	payload := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payload = append(payload, messagePayload{
			ID:         message.MessageID,
			SenderID:   message.SenderID,
			ReceiverID: message.ReceiverID,
			Content:    message.Content,
			CreatedAt:  message.CreatedAt,
		})
	}
	return payload
}

func (h *httpHandler) handleThread(c *gin.Context) {
	messages, err := h.messaging.History(c.Request.Context(), c.GetString(userIDContextKey), c.Param("peerID"))
	if err != nil {
		h.logger.Error("thread query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "thread_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": renderMessages(messages)})
}

type sendMessagePayload struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.ReceiverID) == "" || strings.TrimSpace(request.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	message, err := h.messaging.Send(c.Request.Context(), c.GetString(userIDContextKey),
		request.ReceiverID, request.Content)
	if err != nil {
		h.logger.Error("message send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send_failed"})
		return
	}

	c.JSON(http.StatusCreated, messagePayload{
		ID:         message.MessageID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	})
}

type profilePayload struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Bio            string `json:"bio,omitempty"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	profile, err := h.gateway.GetProfile(c.Request.Context(), c.GetString(userIDContextKey))
	if errors.Is(err, gateway.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("profile query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_failed"})
		return
	}

	c.JSON(http.StatusOK, profilePayload{
		UserID:         profile.UserID,
		Email:          profile.Email,
		DisplayName:    profile.DisplayName,
		AvatarURL:      profile.AvatarURL,
		Bio:            profile.Bio,
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
	})
}

type updateProfilePayload struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var request updateProfilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.identity.UpdateProfile(c.Request.Context(), c.GetString(userIDContextKey),
		request.DisplayName, request.AvatarURL, request.Bio)
	if errors.Is(err, identity.ErrUnknownUser) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("profile update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      session.UserID,
		"display_name": session.DisplayName,
		"avatar_url":   session.AvatarURL,
	})
}

// handleWebsocket authenticates via the Authorization header or, for browser
// clients that cannot set headers on websocket upgrades, a token query
// parameter.
func (h *httpHandler) handleWebsocket(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("websocket token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime_unavailable"})
		return
	}

	realtime.ServeWS(c.Request.Context(), c.Writer, c.Request, h.dispatcher, userID, h.logger)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// optionalAuthorize resolves a bearer token when one is present but lets
// anonymous requests through.
func (h *httpHandler) optionalAuthorize(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.Next()
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.Next()
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
