package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/service"
	"equipment-tracker/internal/storage"
)

const genericSaveError = "Something went wrong while saving equipment."

// Options configures a Handler. Archives may be nil when no bucket is configured.
type Options struct {
	Equipment    service.EquipmentService
	Exports      service.ExportService
	Archives     service.ArchiveService
	Users        service.UserService
	Sessions     service.SessionService
	Logger       *logrus.Logger
	FlashSecret  string
	SecureCookie bool
	CORSOrigins  []string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	equipment    service.EquipmentService
	exports      service.ExportService
	archives     service.ArchiveService
	users        service.UserService
	sessions     service.SessionService
	logger       *logrus.Logger
	flashSecret  []byte
	secureCookie bool
	corsOrigins  []string
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		equipment:    opts.Equipment,
		exports:      opts.Exports,
		archives:     opts.Archives,
		users:        opts.Users,
		sessions:     opts.Sessions,
		logger:       logger,
		flashSecret:  []byte(opts.FlashSecret),
		secureCookie: opts.SecureCookie,
		corsOrigins:  opts.CORSOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(loadTemplates())

	router.Use(requestLogger(h.logger))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/export"})))
	if len(h.corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     h.corsOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore(h.flashSecret)
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(FlashCookie, store))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/login", h.loginPage)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)

	gated := router.Group("/", AuthRequired(h.sessions, h.users, h.logger))
	{
		gated.GET("/", h.dashboard)
		gated.GET("/equipment", h.listEquipment)
		gated.GET("/equipment/add", h.addEquipmentPage)
		gated.POST("/equipment/add", h.addEquipment)
		gated.GET("/equipment/edit/:id", h.editEquipmentPage)
		gated.POST("/equipment/edit/:id", h.editEquipment)
		gated.POST("/equipment/delete/:id", h.deleteEquipment)
		gated.GET("/export", h.export)
		if h.archives != nil {
			gated.POST("/export/archive", h.archiveExport)
			gated.GET("/export/archives", h.listArchives)
		}
	}
}

// render adds the current user and pending flashes to data before executing name.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	flashes := popFlashes(c)
	if extra, ok := data["Flashes"].([]flashMessage); ok {
		flashes = append(flashes, extra...)
	}
	data["Flashes"] = flashes
	c.HTML(status, name, data)
}

func (h *Handler) renderError(c *gin.Context, status int, title, message string, flashes ...flashMessage) {
	h.render(c, status, "error.html", gin.H{
		"Title":   title,
		"Message": message,
		"Flashes": flashes,
	})
}

func (h *Handler) notFound(c *gin.Context) {
	h.renderError(c, http.StatusNotFound, "Not Found", "The requested equipment does not exist.")
}

func (h *Handler) loginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

func (h *Handler) login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	ctx := c.Request.Context()
	user, err := h.users.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.WithError(err).Error("authenticate user")
			h.renderError(c, http.StatusInternalServerError, "Error", "Login is temporarily unavailable.")
			return
		}
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{
			"Title":   "Log in",
			"Email":   email,
			"Flashes": []flashMessage{{Category: "danger", Message: "Invalid email or password"}},
		})
		return
	}

	token, expiresAt, err := h.sessions.Issue(ctx, user.ID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("issue session")
		h.renderError(c, http.StatusInternalServerError, "Error", "Login is temporarily unavailable.")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(time.Until(expiresAt).Seconds()), "/", "", h.secureCookie, true)
	addFlash(c, "success", "Logged in successfully!")
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
			h.logger.WithError(err).Warn("revoke session")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
	addFlash(c, "info", "You have been logged out.")
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) dashboard(c *gin.Context) {
	summary, err := h.equipment.Summary(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("equipment summary")
		h.renderError(c, http.StatusInternalServerError, "Error", "Could not load the dashboard.")
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":   "Dashboard",
		"Summary": summary,
	})
}

func (h *Handler) listEquipment(c *gin.Context) {
	filter := domain.EquipmentFilter{
		Condition:  c.Query("condition"),
		Location:   c.Query("location"),
		AssignedTo: c.Query("assigned_to"),
	}

	items, err := h.equipment.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("list equipment")
		h.renderError(c, http.StatusInternalServerError, "Error", "Could not load equipment.")
		return
	}

	h.render(c, http.StatusOK, "equipment_list.html", gin.H{
		"Title":          "Equipment",
		"Items":          toRows(items),
		"Filter":         filter,
		"Conditions":     domain.Conditions,
		"ArchiveEnabled": h.archives != nil,
	})
}

func (h *Handler) addEquipmentPage(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "Add Equipment", "/equipment/add", equipmentForm{})
}

func (h *Handler) addEquipment(c *gin.Context) {
	fields := formFields(c)
	item, err := h.equipment.Create(c.Request.Context(), fields)
	if err != nil {
		h.saveFailed(c, err, 0, "Add Equipment", "/equipment/add", fields)
		return
	}

	h.logger.WithField("equipment_id", item.ID).Info("equipment added")
	addFlash(c, "success", "Equipment added successfully!")
	c.Redirect(http.StatusFound, "/equipment")
}

func (h *Handler) editEquipmentPage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.notFound(c)
		return
	}

	item, err := h.equipment.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.logger.WithError(err).WithField("equipment_id", id).Error("load equipment")
		h.renderError(c, http.StatusInternalServerError, "Error", "Could not load equipment.")
		return
	}

	h.renderForm(c, http.StatusOK, "Edit Equipment", editPath(id), formFromEquipment(item))
}

func (h *Handler) editEquipment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.notFound(c)
		return
	}

	fields := formFields(c)
	if _, err := h.equipment.Update(c.Request.Context(), id, fields); err != nil {
		h.saveFailed(c, err, id, "Edit Equipment", editPath(id), fields)
		return
	}

	h.logger.WithField("equipment_id", id).Info("equipment updated")
	addFlash(c, "success", "Equipment updated successfully!")
	c.Redirect(http.StatusFound, "/equipment")
}

func (h *Handler) deleteEquipment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.notFound(c)
		return
	}

	if err := h.equipment.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.logger.WithError(err).WithField("equipment_id", id).Error("delete equipment")
		h.renderError(c, http.StatusInternalServerError, "Error", "The equipment was not deleted.",
			flashMessage{Category: "danger", Message: genericSaveError})
		return
	}

	h.logger.WithField("equipment_id", id).Info("equipment deleted")
	addFlash(c, "success", "Equipment deleted successfully!")
	c.Redirect(http.StatusFound, "/equipment")
}

func (h *Handler) export(c *gin.Context) {
	export, err := h.exports.ExportAll(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("export equipment")
		h.renderError(c, http.StatusInternalServerError, "Error", "Could not export equipment.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

func (h *Handler) archiveExport(c *gin.Context) {
	location, err := h.archives.Archive(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("archive export")
		addFlash(c, "danger", "Could not archive the export.")
		c.Redirect(http.StatusFound, "/equipment")
		return
	}

	h.logger.WithField("location", location).Info("export archived")
	addFlash(c, "success", fmt.Sprintf("Export archived to %s", location))
	c.Redirect(http.StatusFound, "/equipment")
}

func (h *Handler) listArchives(c *gin.Context) {
	objects, err := h.archives.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("list archives")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list archives"})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) renderForm(c *gin.Context, status int, title, action string, form equipmentForm, flashes ...flashMessage) {
	h.render(c, status, "equipment_form.html", gin.H{
		"Title":      title,
		"Action":     action,
		"Form":       form,
		"Conditions": conditionOptions(form.Condition),
		"Flashes":    flashes,
	})
}

// saveFailed maps a create/update error onto a response, re-rendering the
// submitted form where that makes sense.
func (h *Handler) saveFailed(c *gin.Context, err error, id int64, title, action string, fields service.EquipmentFields) {
	form := formFromFields(fields)

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderForm(c, http.StatusBadRequest, title, action, form,
			flashMessage{Category: "danger", Message: verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(c)
	default:
		entry := h.logger.WithError(err)
		if id > 0 {
			entry = entry.WithField("equipment_id", id)
		}
		entry.Error("save equipment")
		h.renderForm(c, http.StatusInternalServerError, title, action, form,
			flashMessage{Category: "danger", Message: genericSaveError})
	}
}

func formFields(c *gin.Context) service.EquipmentFields {
	field := func(key string) *string {
		if v, ok := c.GetPostForm(key); ok {
			return &v
		}
		return nil
	}
	return service.EquipmentFields{
		Name:          field("name"),
		Description:   field("description"),
		Quantity:      field("quantity"),
		Unit:          field("unit"),
		Condition:     field("condition"),
		AssignedTo:    field("assigned_to"),
		Location:      field("location"),
		DateIssued:    field("date_issued"),
		LastInspected: field("last_inspected"),
		Remarks:       field("remarks"),
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func editPath(id int64) string {
	return fmt.Sprintf("/equipment/edit/%d", id)
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
