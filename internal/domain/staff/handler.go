package staff

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the public per-role login endpoints and the
// admin-only staff management endpoints. authn must be the Authenticate
// middleware; login routes stay outside it.
func (h *Handler) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	for _, role := range Roles() {
		role := role
		e.POST("/"+role+"/login", func(c echo.Context) error {
			return h.login(c, role)
		})
	}

	me := e.Group("/staff", authn)
	me.GET("/me", h.Me)

	admin := e.Group("/admin/staff", authn, auth.RequireRole(auth.RoleAdmin))
	admin.POST("/:role", h.RegisterStaff)
	admin.GET("/:role", h.ListStaff)
	admin.GET("/:role/:id", h.GetStaff)
	admin.PUT("/:role/:id", h.UpdateStaff)
	admin.DELETE("/:role/:id", h.DeleteStaff)
	admin.GET("/counts", h.StaffCounts)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c echo.Context, role string) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cred, token, err := h.svc.Login(c.Request().Context(), role, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  cred.Public(),
	})
}

// Me returns the resolved principal's own record.
func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if cred, ok := p.Record.(*Credential); ok {
		return c.JSON(http.StatusOK, cred)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RegisterStaff(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cred, err := h.svc.Register(c.Request().Context(), c.Param("role"), in)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusCreated, cred)
}

func (h *Handler) ListStaff(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), c.Param("role"))
	if err != nil {
		return staffError(err)
	}
	if list == nil {
		list = []*Credential{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cred, err := h.svc.Get(c.Request().Context(), c.Param("role"), id)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, cred)
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cred, err := h.svc.UpdateProfile(c.Request().Context(), c.Param("role"), id, upd)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, cred)
}

func (h *Handler) DeleteStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("role"), id); err != nil {
		return staffError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StaffCounts(c echo.Context) error {
	counts, err := h.svc.Counts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, counts)
}

func staffError(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "staff member not found")
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
