package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// requestBodyMaxSize bounds every request body; all payloads here are small
// JSON documents.
const requestBodyMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.POST("/projects", createProject(store))
	e.POST("/access", accessProject(store))
	e.GET("/projects/:id", getProject(store))
	e.DELETE("/projects/:id", deleteProject(store))

	e.GET("/projects/:id/items", getBoard(store))
	e.POST("/projects/:id/items", createItem(store))
	e.PATCH("/projects/:id/items/:itemId", updateItem(store))
	e.DELETE("/projects/:id/items/:itemId", deleteItem(store))
	e.POST("/projects/:id/items/reorder", reorderItems(store, logger))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// authorizeProject resolves the path project and checks the presented
// secret. An unknown project is 404; a bad or missing secret on an existing
// project is 403, deliberately distinct so "doesn't exist" never conflates
// with "exists but you're not in".
func authorizeProject(c echo.Context, store Store) (domain.Project, bool, error) {
	proj, err := store.Project(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domain.Project{}, false, storeError(c, err)
	}
	secret, err := secretFromHeader(c.Request().Header)
	if err != nil {
		return domain.Project{}, false, jsonError(c, http.StatusForbidden, err.Error())
	}
	if !secretMatches(secret, proj.SecretKey) {
		return domain.Project{}, false, jsonError(c, http.StatusForbidden, "secret key does not match")
	}
	return proj, true, nil
}

type createProjectRequest struct {
	Name      string `json:"name"`
	SecretKey string `json:"secretKey"`
}

func createProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		name := strings.TrimSpace(req.Name)
		secret := strings.TrimSpace(req.SecretKey)
		if name == "" {
			return jsonError(c, http.StatusBadRequest, "name must not be empty")
		}
		if secret == "" {
			return jsonError(c, http.StatusBadRequest, "secretKey must not be empty")
		}
		proj, err := store.CreateProject(c.Request().Context(), name, secret)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(http.StatusCreated, proj)
	}
}

type accessRequest struct {
	SecretKey string `json:"secretKey"`
}

func accessProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req accessRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		secret := strings.TrimSpace(req.SecretKey)
		if secret == "" {
			return jsonError(c, http.StatusBadRequest, "secretKey must not be empty")
		}
		proj, err := store.ProjectBySecret(c.Request().Context(), secret)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(http.StatusOK, proj)
	}
}

func getProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		return c.JSON(http.StatusOK, proj)
	}
}

func deleteProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		if err := store.DeleteProject(c.Request().Context(), proj.ID); err != nil {
			return storeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getBoard(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		board, err := store.Board(c.Request().Context(), proj.ID)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

type createItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func createItem(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		var req createItemRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return jsonError(c, http.StatusBadRequest, "title must not be empty")
		}
		status := domain.StatusBacklog
		if req.Status != "" {
			status = domain.Status(req.Status)
			if !status.Valid() {
				return jsonError(c, http.StatusBadRequest, "invalid status")
			}
		}
		item, err := store.CreateItem(c.Request().Context(), proj.ID, title, req.Description, status)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(http.StatusCreated, item)
	}
}

type updateItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func updateItem(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		var req updateItemRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		var patch domain.ItemPatch
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return jsonError(c, http.StatusBadRequest, "title must not be empty")
			}
			patch.Title = &title
		}
		if req.Description != nil {
			patch.Description = req.Description
		}
		if req.Status != nil {
			status := domain.Status(*req.Status)
			if !status.Valid() {
				return jsonError(c, http.StatusBadRequest, "invalid status")
			}
			patch.Status = &status
		}
		item, err := store.UpdateItem(c.Request().Context(), proj.ID, c.Param("itemId"), patch)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(http.StatusOK, item)
	}
}

func deleteItem(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		proj, ok, err := authorizeProject(c, store)
		if !ok {
			return err
		}
		if err := store.DeleteItem(c.Request().Context(), proj.ID, c.Param("itemId")); err != nil {
			return storeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type reorderRequest struct {
	Columns map[string][]string `json:"columns"`
}

func reorderItems(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newReorderRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		proj, ok, authErr := authorizeProject(c, store)
		metrics.ObserveAuth(time.Since(authStart))
		if !ok {
			metrics.SetErrorStage("auth")
			err = authErr
			return err
		}

		decodeStart := time.Now()
		var req reorderRequest
		if derr := decodeBody(c, &req); derr != nil {
			metrics.SetErrorStage("decode")
			err = jsonError(c, http.StatusBadRequest, "invalid body")
			return err
		}
		plan := make(domain.ReorderPlan, len(req.Columns))
		moved := 0
		for key, ids := range req.Columns {
			status := domain.Status(key)
			if !status.Valid() {
				metrics.SetErrorStage("invalid_status")
				err = jsonError(c, http.StatusBadRequest, "invalid status "+key)
				return err
			}
			plan[status] = ids
			moved += len(ids)
		}
		metrics.ObserveDecode(time.Since(decodeStart))
		metrics.SetItemsMoved(moved)

		applyStart := time.Now()
		board, reorderErr := store.Reorder(ctx, proj.ID, plan)
		metrics.ObserveApply(time.Since(applyStart))
		if reorderErr != nil {
			metrics.SetErrorStage("apply")
			err = storeError(c, reorderErr)
			return err
		}
		err = c.JSON(http.StatusOK, board)
		return err
	}
}
