package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/whatsapp"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	desk := e.Group("/biller", authn, auth.RequireRole(auth.RoleAdmin, auth.RoleBiller))
	desk.POST("/create-bill", h.Create)
	desk.GET("/all-bills", h.List)
	desk.PUT("/bill/:billId", h.Update)
	desk.DELETE("/bill/:billId", h.Delete)
	desk.POST("/generate-pdf/:billId", h.GeneratePDF)
	desk.POST("/send-whatsapp/:patientId", h.SendWhatsApp)
	desk.GET("/doctors", h.Doctors)
	desk.GET("/prescription/:patientId", h.LatestPrescription)
	desk.GET("/unbilled-scan-reports/:patientId", h.UnbilledScanReports)
	desk.GET("/stats", h.Stats)

	// The bill document is fetched by the patient from a WhatsApp message
	// link, so this route carries no authentication.
	e.GET("/biller/view-pdf/:billId", h.ViewPDF)

	bills := e.Group("/patients/:id/bills", authn,
		auth.RequireRole(auth.RoleAdmin, auth.RoleBiller, auth.RoleReceptionist))
	bills.GET("", h.ListByPatient)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateBillInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.CreateBill(c.Request().Context(), in)
	if err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusCreated, bill)
}

func (h *Handler) List(c echo.Context) error {
	bills, err := h.svc.List(c.Request().Context())
	if err != nil {
		return billError(err)
	}
	if bills == nil {
		bills = []*Bill{}
	}
	return c.JSON(http.StatusOK, bills)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	bills, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return billError(err)
	}
	if bills == nil {
		bills = []*Bill{}
	}
	return c.JSON(http.StatusOK, bills)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var in UpdateBillInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.UpdateBill(c.Request().Context(), id, in)
	if err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	if err := h.svc.DeleteBill(c.Request().Context(), id); err != nil {
		return billError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GeneratePDF makes sure the bill's document exists and reports where it can
// be viewed.
func (h *Handler) GeneratePDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	if _, err := h.svc.EnsureDocument(c.Request().Context(), id); err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"bill_id": id.String(),
		"pdf_url": fmt.Sprintf("/biller/view-pdf/%s", id),
	})
}

func (h *Handler) ViewPDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	path, err := h.svc.EnsureDocument(c.Request().Context(), id)
	if err != nil {
		return billError(err)
	}
	return c.Inline(path, fmt.Sprintf("bill_%s.pdf", id))
}

func (h *Handler) SendWhatsApp(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.svc.SendToPatient(c.Request().Context(), patientID); err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "bill sent on WhatsApp"})
}

func (h *Handler) Doctors(c echo.Context) error {
	doctors, err := h.svc.Doctors(c.Request().Context())
	if err != nil {
		return billError(err)
	}
	out := make([]map[string]interface{}, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.Public())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) LatestPrescription(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	rx, err := h.svc.LatestPrescription(c.Request().Context(), patientID)
	if err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) UnbilledScanReports(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	scans, err := h.svc.UnbilledScanReports(c.Request().Context(), patientID)
	if err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, scans)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return billError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func billError(err error) error {
	var verr *ValidationError
	var apiErr *whatsapp.APIError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	case errors.Is(err, records.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, ErrNoPhone):
		return echo.NewHTTPError(http.StatusBadRequest, "patient phone number missing")
	case errors.Is(err, ErrDeliveryDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "whatsapp delivery not configured")
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
	case errors.As(err, &apiErr):
		// The provider's payload carries the error code operators need.
		return echo.NewHTTPError(http.StatusBadGateway,
			fmt.Sprintf("whatsapp provider rejected the request: status %d: %s", apiErr.StatusCode, apiErr.Body))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
