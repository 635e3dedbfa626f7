package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/careportal/internal/middleware"
	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/server"
	"github.com/deppfellow/careportal/internal/service"
	"github.com/deppfellow/careportal/internal/validation"
)

type IssueCertificateRequest struct {
	UserID         string `json:"userId" validate:"required"`
	CourseID       string `json:"courseId" validate:"required"`
	CertificateURL string `json:"certificateUrl" validate:"required"`
}

func (r *IssueCertificateRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type ListMyCertificatesRequest struct{}

func (r *ListMyCertificatesRequest) Validate() error {
	return nil
}

// DownloadCertificateRequest identifies the certificate by the course id
// of the requester's enrollment.
type DownloadCertificateRequest struct {
	ID string `param:"id" validate:"required"`
}

func (r *DownloadCertificateRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type CertificateListResponse struct {
	Certificates []model.CertificateSummary `json:"certificates"`
}

type CertificateHandler struct {
	Handler
	certificateService *service.CertificateService
}

func NewCertificateHandler(s *server.Server, certificateService *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{
		Handler:            NewHandler(s),
		certificateService: certificateService,
	}
}

func (h *CertificateHandler) Issue(c echo.Context, req *IssueCertificateRequest) (*service.IssueCertificateResult, error) {
	return h.certificateService.Issue(c.Request().Context(), middleware.GetRequestContext(c), service.IssueCertificateInput{
		UserID:         req.UserID,
		CourseID:       req.CourseID,
		CertificateURL: req.CertificateURL,
	})
}

func (h *CertificateHandler) ListMine(c echo.Context, _ *ListMyCertificatesRequest) (*CertificateListResponse, error) {
	certificates, err := h.certificateService.ListMine(c.Request().Context(), middleware.GetRequestContext(c))
	if err != nil {
		return nil, err
	}
	return &CertificateListResponse{Certificates: certificates}, nil
}

func (h *CertificateHandler) Download(c echo.Context, req *DownloadCertificateRequest) (*SignedURLResponse, error) {
	url, err := h.certificateService.DownloadURL(c.Request().Context(), middleware.GetRequestContext(c), req.ID)
	if err != nil {
		return nil, err
	}
	return &SignedURLResponse{URL: url}, nil
}
