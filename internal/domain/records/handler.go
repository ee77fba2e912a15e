package records

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	doctor := e.Group("/doctor", authn, auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/report", h.CreateReport)
	doctor.GET("/report/:id", h.GetReport)
	doctor.PUT("/report/:id", h.UpdateReport)
	doctor.DELETE("/report/:id", h.DeleteReport)
	doctor.POST("/prescription", h.CreatePrescription)
	doctor.GET("/prescription/:id", h.GetPrescription)
	doctor.PUT("/prescription/:id", h.UpdatePrescription)
	doctor.GET("/scan-report/:id", h.GetScanReport)

	scanner := e.Group("/scanner", authn)
	scanner.POST("/report", h.CreateScanReport, auth.RequireRole(auth.RoleScanner, auth.RoleDoctor))
	scanner.GET("/reports", h.ListScanReports, auth.RequireRole(auth.RoleScanner, auth.RoleAdmin, auth.RoleBiller))
	scanner.GET("/report/:id", h.GetScanReport, auth.RequireRole(auth.RoleScanner, auth.RoleAdmin, auth.RoleDoctor))
	scanner.PUT("/report/:id", h.UpdateScanReport, auth.RequireRole(auth.RoleScanner))
	scanner.PUT("/report/verify/:id", h.VerifyScanReport, auth.RequireRole(auth.RoleDoctor))
	scanner.DELETE("/report/:id", h.DeleteScanReport, auth.RequireRole(auth.RoleScanner, auth.RoleAdmin))

	lab := e.Group("/lab", authn)
	lab.POST("/report", h.CreateLabReport, auth.RequireRole(auth.RoleLab, auth.RoleDoctor))
	lab.GET("/reports", h.ListLabReports, auth.RequireRole(auth.RoleLab, auth.RoleDoctor, auth.RoleAdmin))
	lab.GET("/report/:id", h.GetLabReport, auth.RequireRole(auth.RoleLab, auth.RoleDoctor, auth.RoleAdmin))
	lab.PUT("/report/:id", h.UpdateLabReport, auth.RequireRole(auth.RoleLab))
	lab.PUT("/report/verify/:id", h.VerifyLabReport, auth.RequireRole(auth.RoleDoctor))
	lab.DELETE("/report/:id", h.DeleteLabReport, auth.RequireRole(auth.RoleLab, auth.RoleAdmin))
	lab.GET("/dashboard-stats", h.LabDashboardStats, auth.RequireRole(auth.RoleLab))

	admin := e.Group("/admin", authn, auth.RequireRole(auth.RoleAdmin))
	admin.GET("/clinical-reports", h.ListAllReports)

	history := e.Group("/patients/:id", authn,
		auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleReceptionist, auth.RoleBiller, auth.RoleScanner, auth.RoleLab))
	history.GET("/reports", h.PatientReports)
	history.GET("/prescriptions", h.PatientPrescriptions)
	history.GET("/scan-reports", h.PatientScanReports)
	history.GET("/lab-reports", h.PatientLabReports)
}

func principalID(c echo.Context) (uuid.UUID, bool, error) {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return uuid.Nil, false, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p.ID, p.Role == auth.RoleDoctor, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Clinical reports --

func (h *Handler) CreateReport(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateReport(c.Request().Context(), doctorID, &r); err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateReport(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateReport(c.Request().Context(), doctorID, id, &r)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReport(c.Request().Context(), doctorID, id); err != nil {
		return recordsError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAllReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListAllReports(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

// -- Prescriptions --

func (h *Handler) CreatePrescription(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePrescription(c.Request().Context(), doctorID, &p); err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdatePrescription(c.Request().Context(), doctorID, id, &p)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// -- Scan reports --

func (h *Handler) CreateScanReport(c echo.Context) error {
	creatorID, isDoctor, err := principalID(c)
	if err != nil {
		return err
	}
	var sr ScanReport
	if err := c.Bind(&sr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateScanReport(c.Request().Context(), creatorID, isDoctor, &sr); err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusCreated, sr)
}

func (h *Handler) ListScanReports(c echo.Context) error {
	reports, err := h.svc.ListScanReports(c.Request().Context())
	if err != nil {
		return recordsError(err)
	}
	if reports == nil {
		reports = []*ScanReport{}
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) GetScanReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sr, err := h.svc.GetScanReport(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, sr)
}

func (h *Handler) UpdateScanReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var sr ScanReport
	if err := c.Bind(&sr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateScanReport(c.Request().Context(), id, &sr)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) VerifyScanReport(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sr, err := h.svc.VerifyScanReport(c.Request().Context(), doctorID, id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, sr)
}

func (h *Handler) DeleteScanReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteScanReport(c.Request().Context(), id); err != nil {
		return recordsError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Lab reports --

func (h *Handler) CreateLabReport(c echo.Context) error {
	creatorID, isDoctor, err := principalID(c)
	if err != nil {
		return err
	}
	var l LabReport
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLabReport(c.Request().Context(), creatorID, isDoctor, &l); err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) ListLabReports(c echo.Context) error {
	reports, err := h.svc.ListLabReports(c.Request().Context())
	if err != nil {
		return recordsError(err)
	}
	if reports == nil {
		reports = []*LabReport{}
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) GetLabReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.GetLabReport(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) UpdateLabReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var l LabReport
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateLabReport(c.Request().Context(), id, &l)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) VerifyLabReport(c echo.Context) error {
	doctorID, _, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.VerifyLabReport(c.Request().Context(), doctorID, id)
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLabReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLabReport(c.Request().Context(), id); err != nil {
		return recordsError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LabDashboardStats(c echo.Context) error {
	stats, err := h.svc.LabDashboardStats(c.Request().Context())
	if err != nil {
		return recordsError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// -- Patient history --

func (h *Handler) PatientReports(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	reports, err := h.svc.ListReportsByPatient(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	if reports == nil {
		reports = []*Report{}
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) PatientPrescriptions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	prescriptions, err := h.svc.ListPrescriptionsByPatient(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	if prescriptions == nil {
		prescriptions = []*Prescription{}
	}
	return c.JSON(http.StatusOK, prescriptions)
}

func (h *Handler) PatientScanReports(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	reports, err := h.svc.ListScanReportsByPatient(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	if reports == nil {
		reports = []*ScanReport{}
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) PatientLabReports(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	reports, err := h.svc.ListLabReportsByPatient(c.Request().Context(), id)
	if err != nil {
		return recordsError(err)
	}
	if reports == nil {
		reports = []*LabReport{}
	}
	return c.JSON(http.StatusOK, reports)
}

func recordsError(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
