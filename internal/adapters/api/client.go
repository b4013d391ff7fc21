// Package api contains the HTTP adapter for the back-office CRM. It
// implements secondary.BackOfficeAPI over the JSON endpoints; a non-2xx
// response surfaces as an error so the caller's step stays unchanged.
package api

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/ronda/internal/ports/secondary"
)

// Client talks to the back-office visit endpoints.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates a back-office API client. The token is sent as a
// bearer credential on every request. No automatic retries: the write
// endpoints are not idempotent, and a timeout after the server committed
// would duplicate visits or photos. Retrying is the operator's call.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Wire DTOs. Field names follow the server's JSON contract.

type visitDTO struct {
	ID             string  `json:"id"`
	InstallationID string  `json:"installationId"`
	Status         string  `json:"status"`
	WizardStep     int     `json:"wizardStep"`
	CheckInAt      string  `json:"checkInAt"`
	CheckInLat     float64 `json:"checkInLat"`
	CheckInLng     float64 `json:"checkInLng"`
	GuardsExpected int     `json:"guardsExpected"`
	GuardsFound    int     `json:"guardsFound"`
}

type createVisitDTO struct {
	InstallationID string  `json:"installationId"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	StartedVia     string  `json:"startedVia"`
	OverrideReason string  `json:"overrideReason,omitempty"`
}

type guardEvaluationDTO struct {
	GuardID       string `json:"guardId,omitempty"`
	Name          string `json:"name"`
	Reinforcement bool   `json:"reinforcement"`
	Presentation  *int   `json:"presentation"`
	Order         *int   `json:"order"`
	Protocol      *int   `json:"protocol"`
	Observation   string `json:"observation,omitempty"`
}

type visitPatchDTO struct {
	WizardStep        *int                 `json:"wizardStep,omitempty"`
	GuardsExpected    *int                 `json:"guardsExpected,omitempty"`
	GuardsFound       *int                 `json:"guardsFound,omitempty"`
	InstallationState *string              `json:"installationState,omitempty"`
	GeneralComments   *string              `json:"generalComments,omitempty"`
	BookUpToDate      *bool                `json:"bookUpToDate,omitempty"`
	BookLastEntryDate *string              `json:"bookLastEntryDate,omitempty"`
	BookNotes         *string              `json:"bookNotes,omitempty"`
	BookPhotoURL      *string              `json:"bookPhotoUrl,omitempty"`
	DocumentChecklist map[string]bool      `json:"documentChecklist,omitempty"`
	GuardEvaluations  []guardEvaluationDTO `json:"guardEvaluations,omitempty"`
}

type installationDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	GeoRadiusM     float64  `json:"geoRadiusM"`
	DistanceM      *float64 `json:"distanceM,omitempty"`
	InsideGeofence *bool    `json:"insideGeofence,omitempty"`
}

type dotationEntryDTO struct {
	GuardID string `json:"guardId"`
	Name    string `json:"name"`
}

type dotationDTO struct {
	Regular       []dotationEntryDTO `json:"regular"`
	Reinforcement []dotationEntryDTO `json:"reinforcement"`
	TotalExpected int                `json:"totalExpected"`
}

type checklistItemDTO struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Mandatory bool   `json:"mandatory"`
}

type documentTypeDTO struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

type checklistDTO struct {
	Items         []checklistItemDTO `json:"items"`
	DocumentTypes []documentTypeDTO  `json:"documentTypes"`
}

type photoCategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

type findingDTO struct {
	ID                string `json:"id"`
	Category          string `json:"category"`
	Severity          string `json:"severity"`
	Description       string `json:"description"`
	Status            string `json:"status"`
	GuardID           string `json:"guardId,omitempty"`
	PhotoURL          string `json:"photoUrl,omitempty"`
	VisitID           string `json:"visitId"`
	VerifiedInVisitID string `json:"verifiedInVisitId,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

type createFindingDTO struct {
	GuardID     string `json:"guardId,omitempty"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

type findingStatusDTO struct {
	FindingID         string `json:"findingId"`
	Status            string `json:"status"`
	VerifiedInVisitID string `json:"verifiedInVisitId"`
}

type checklistResultDTO struct {
	ItemID    string `json:"itemId"`
	Checked   bool   `json:"checked"`
	FindingID string `json:"findingId,omitempty"`
}

type photoUploadResultDTO struct {
	ID       string `json:"id"`
	PhotoURL string `json:"photoUrl"`
}

type checkoutDTO struct {
	Lat                 float64  `json:"lat"`
	Lng                 float64  `json:"lng"`
	CompletedVia        string   `json:"completedVia"`
	GeneralComments     string   `json:"generalComments,omitempty"`
	InstallationState   string   `json:"installationState,omitempty"`
	GuardsExpected      int      `json:"guardsExpected"`
	GuardsFound         int      `json:"guardsFound"`
	BookUpToDate        *bool    `json:"bookUpToDate"`
	BookLastEntryDate   string   `json:"bookLastEntryDate,omitempty"`
	BookNotes           string   `json:"bookNotes,omitempty"`
	ClientContacted     bool     `json:"clientContacted"`
	ClientContactName   string   `json:"clientContactName,omitempty"`
	ClientSatisfaction  *float64 `json:"clientSatisfaction"`
	ClientComment       string   `json:"clientComment,omitempty"`
	ClientValidationURL string   `json:"clientValidationUrl,omitempty"`
}

// CreateVisit opens a visit at check-in.
func (c *Client) CreateVisit(ctx context.Context, req secondary.CreateVisitRequest) (*secondary.VisitRecord, error) {
	var result visitDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(createVisitDTO{
			InstallationID: req.InstallationID,
			Lat:            req.Lat,
			Lng:            req.Lng,
			StartedVia:     req.StartedVia,
			OverrideReason: req.OverrideReason,
		}).
		SetResult(&result).
		Post("/api/v1/visits")
	if err := c.check(resp, err, "create visit"); err != nil {
		return nil, err
	}

	c.logger.Info("visit created",
		zap.String("visit_id", result.ID),
		zap.String("installation_id", req.InstallationID),
	)
	return visitToRecord(&result), nil
}

// UpdateVisit patches the given visit fields.
func (c *Client) UpdateVisit(ctx context.Context, visitID string, patch secondary.VisitPatch) (*secondary.VisitRecord, error) {
	var result visitDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(patchToDTO(patch)).
		SetResult(&result).
		Patch("/api/v1/visits/" + visitID)
	if err := c.check(resp, err, "update visit"); err != nil {
		return nil, err
	}

	if patch.WizardStep != nil {
		c.logger.Info("visit step persisted",
			zap.String("visit_id", visitID),
			zap.Int("wizard_step", *patch.WizardStep),
		)
	}
	return visitToRecord(&result), nil
}

// ListAssignedInstallations returns the operator's installations.
func (c *Client) ListAssignedInstallations(ctx context.Context) ([]*secondary.InstallationRecord, error) {
	var result []installationDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/v1/installations")
	if err := c.check(resp, err, "list installations"); err != nil {
		return nil, err
	}
	return installationsToRecords(result), nil
}

// NearbyInstallations returns assigned installations ranked by distance.
func (c *Client) NearbyInstallations(ctx context.Context, lat, lng, maxDistanceM float64) ([]*secondary.InstallationRecord, error) {
	var result []installationDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":         strconv.FormatFloat(lat, 'f', -1, 64),
			"lng":         strconv.FormatFloat(lng, 'f', -1, 64),
			"maxDistance": strconv.FormatFloat(maxDistanceM, 'f', -1, 64),
		}).
		SetResult(&result).
		Get("/api/v1/installations/nearby")
	if err := c.check(resp, err, "list nearby installations"); err != nil {
		return nil, err
	}
	return installationsToRecords(result), nil
}

// Dotation returns the expected roster for a shift window.
func (c *Client) Dotation(ctx context.Context, installationID, date, tm string) (*secondary.DotationRecord, error) {
	var result dotationDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("date", date).
		SetQueryParam("time", tm).
		SetResult(&result).
		Get("/api/v1/installations/" + installationID + "/dotation")
	if err := c.check(resp, err, "get dotation"); err != nil {
		return nil, err
	}

	record := &secondary.DotationRecord{TotalExpected: result.TotalExpected}
	for _, e := range result.Regular {
		record.Regular = append(record.Regular, secondary.DotationEntryRecord{GuardID: e.GuardID, Name: e.Name})
	}
	for _, e := range result.Reinforcement {
		record.Reinforcement = append(record.Reinforcement, secondary.DotationEntryRecord{GuardID: e.GuardID, Name: e.Name})
	}
	return record, nil
}

// Checklist returns an installation's checklist configuration.
func (c *Client) Checklist(ctx context.Context, installationID string) (*secondary.ChecklistRecord, error) {
	var result checklistDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/v1/installations/" + installationID + "/checklist")
	if err := c.check(resp, err, "get checklist"); err != nil {
		return nil, err
	}

	record := &secondary.ChecklistRecord{}
	for _, item := range result.Items {
		record.Items = append(record.Items, secondary.ChecklistItemRecord{ID: item.ID, Label: item.Label, Mandatory: item.Mandatory})
	}
	for _, doc := range result.DocumentTypes {
		record.DocumentTypes = append(record.DocumentTypes, secondary.DocumentTypeRecord{Code: doc.Code, Name: doc.Name, Mandatory: doc.Mandatory})
	}
	return record, nil
}

// PhotoCategories returns an installation's photo categories.
func (c *Client) PhotoCategories(ctx context.Context, installationID string) ([]*secondary.PhotoCategoryRecord, error) {
	var result []photoCategoryDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/v1/installations/" + installationID + "/photo-categories")
	if err := c.check(resp, err, "get photo categories"); err != nil {
		return nil, err
	}

	records := make([]*secondary.PhotoCategoryRecord, len(result))
	for i, cat := range result {
		records[i] = &secondary.PhotoCategoryRecord{ID: cat.ID, Name: cat.Name, Mandatory: cat.Mandatory}
	}
	return records, nil
}

// OpenFindings returns the still-open findings at an installation.
func (c *Client) OpenFindings(ctx context.Context, installationID string) ([]*secondary.FindingRecord, error) {
	var result []findingDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("status", "open,in_progress").
		SetResult(&result).
		Get("/api/v1/installations/" + installationID + "/findings")
	if err := c.check(resp, err, "list open findings"); err != nil {
		return nil, err
	}

	records := make([]*secondary.FindingRecord, len(result))
	for i := range result {
		records[i] = findingToRecord(&result[i])
	}
	return records, nil
}

// CreateFinding records a new finding against a visit.
func (c *Client) CreateFinding(ctx context.Context, visitID string, req secondary.CreateFindingRequest) (*secondary.FindingRecord, error) {
	var result findingDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(createFindingDTO{
			GuardID:     req.GuardID,
			Category:    req.Category,
			Severity:    req.Severity,
			Description: req.Description,
		}).
		SetResult(&result).
		Post("/api/v1/visits/" + visitID + "/findings")
	if err := c.check(resp, err, "create finding"); err != nil {
		return nil, err
	}

	c.logger.Info("finding created",
		zap.String("finding_id", result.ID),
		zap.String("visit_id", visitID),
		zap.String("severity", req.Severity),
	)
	return findingToRecord(&result), nil
}

// UpdateFindingStatus moves a finding forward with audit linkage.
func (c *Client) UpdateFindingStatus(ctx context.Context, installationID string, req secondary.UpdateFindingStatusRequest) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(findingStatusDTO{
			FindingID:         req.FindingID,
			Status:            req.Status,
			VerifiedInVisitID: req.VerifiedInVisitID,
		}).
		Put("/api/v1/installations/" + installationID + "/findings/status")
	return c.check(resp, err, "update finding status")
}

// SaveChecklistResults persists the operator's checklist marks.
func (c *Client) SaveChecklistResults(ctx context.Context, visitID string, results []secondary.ChecklistResultRecord) error {
	body := make([]checklistResultDTO, len(results))
	for i, r := range results {
		body[i] = checklistResultDTO{ItemID: r.ItemID, Checked: r.Checked, FindingID: r.FindingID}
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/v1/visits/" + visitID + "/checklist-results")
	return c.check(resp, err, "save checklist results")
}

// UploadPhoto uploads one evidence photo to the primary store.
func (c *Client) UploadPhoto(ctx context.Context, visitID string, up secondary.PhotoUpload) (*secondary.PhotoUploadResult, error) {
	form := map[string]string{
		"categoryName": up.CategoryName,
	}
	if up.CategoryID != "" {
		form["categoryId"] = up.CategoryID
	}
	if up.GpsLat != nil {
		form["gpsLat"] = strconv.FormatFloat(*up.GpsLat, 'f', -1, 64)
	}
	if up.GpsLng != nil {
		form["gpsLng"] = strconv.FormatFloat(*up.GpsLng, 'f', -1, 64)
	}

	var result photoUploadResultDTO
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", up.FileName, bytes.NewReader(up.Data)).
		SetFormData(form).
		SetResult(&result).
		Post("/api/v1/visits/" + visitID + "/photos")
	if err := c.check(resp, err, "upload photo"); err != nil {
		return nil, err
	}

	c.logger.Info("photo uploaded",
		zap.String("visit_id", visitID),
		zap.String("photo_id", result.ID),
		zap.String("category", up.CategoryName),
		zap.Int("size_bytes", len(up.Data)),
	)
	return &secondary.PhotoUploadResult{ID: result.ID, PhotoURL: result.PhotoURL}, nil
}

// UploadPhotoLegacy duplicates the file into the legacy store, kept for
// backward compatibility with the old reporting screens.
func (c *Client) UploadPhotoLegacy(ctx context.Context, visitID string, fileName string, data []byte, caption string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(data)).
		SetFormData(map[string]string{"caption": caption}).
		Post("/api/v1/visits/" + visitID + "/photos/legacy")
	return c.check(resp, err, "upload legacy photo")
}

// Checkout submits the atomic closure payload and seals the visit.
func (c *Client) Checkout(ctx context.Context, visitID string, req secondary.CheckoutRequest) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(checkoutDTO{
			Lat:                 req.Lat,
			Lng:                 req.Lng,
			CompletedVia:        req.CompletedVia,
			GeneralComments:     req.GeneralComments,
			InstallationState:   req.InstallationState,
			GuardsExpected:      req.GuardsExpected,
			GuardsFound:         req.GuardsFound,
			BookUpToDate:        req.BookUpToDate,
			BookLastEntryDate:   req.BookLastEntryDate,
			BookNotes:           req.BookNotes,
			ClientContacted:     req.ClientContacted,
			ClientContactName:   req.ClientContactName,
			ClientSatisfaction:  req.ClientSatisfaction,
			ClientComment:       req.ClientComment,
			ClientValidationURL: req.ClientValidationURL,
		}).
		Post("/api/v1/visits/" + visitID + "/checkout")
	if err := c.check(resp, err, "checkout"); err != nil {
		return err
	}

	c.logger.Info("visit checked out", zap.String("visit_id", visitID))
	return nil
}

// check maps transport errors and non-2xx responses to a single error.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.logger.Error("back-office call failed",
			zap.String("operation", op),
			zap.Error(err),
		)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.IsError() {
		c.logger.Error("back-office returned error",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", string(resp.Body())),
		)
		return fmt.Errorf("failed to %s: server returned %d", op, resp.StatusCode())
	}
	return nil
}

func visitToRecord(v *visitDTO) *secondary.VisitRecord {
	return &secondary.VisitRecord{
		ID:             v.ID,
		InstallationID: v.InstallationID,
		Status:         v.Status,
		WizardStep:     v.WizardStep,
		CheckInAt:      v.CheckInAt,
		CheckInLat:     v.CheckInLat,
		CheckInLng:     v.CheckInLng,
		GuardsExpected: v.GuardsExpected,
		GuardsFound:    v.GuardsFound,
	}
}

func patchToDTO(patch secondary.VisitPatch) visitPatchDTO {
	dto := visitPatchDTO{
		WizardStep:        patch.WizardStep,
		GuardsExpected:    patch.GuardsExpected,
		GuardsFound:       patch.GuardsFound,
		InstallationState: patch.InstallationState,
		GeneralComments:   patch.GeneralComments,
		BookUpToDate:      patch.BookUpToDate,
		BookLastEntryDate: patch.BookLastEntryDate,
		BookNotes:         patch.BookNotes,
		BookPhotoURL:      patch.BookPhotoURL,
		DocumentChecklist: patch.DocumentChecklist,
	}
	for _, e := range patch.GuardEvaluations {
		dto.GuardEvaluations = append(dto.GuardEvaluations, guardEvaluationDTO{
			GuardID:       e.GuardID,
			Name:          e.Name,
			Reinforcement: e.Reinforcement,
			Presentation:  e.Presentation,
			Order:         e.Order,
			Protocol:      e.Protocol,
			Observation:   e.Observation,
		})
	}
	return dto
}

func installationsToRecords(dtos []installationDTO) []*secondary.InstallationRecord {
	records := make([]*secondary.InstallationRecord, len(dtos))
	for i, d := range dtos {
		records[i] = &secondary.InstallationRecord{
			ID:             d.ID,
			Name:           d.Name,
			Address:        d.Address,
			Lat:            d.Lat,
			Lng:            d.Lng,
			GeoRadiusM:     d.GeoRadiusM,
			DistanceM:      d.DistanceM,
			InsideGeofence: d.InsideGeofence,
		}
	}
	return records
}

func findingToRecord(d *findingDTO) *secondary.FindingRecord {
	return &secondary.FindingRecord{
		ID:                d.ID,
		Category:          d.Category,
		Severity:          d.Severity,
		Description:       d.Description,
		Status:            d.Status,
		GuardID:           d.GuardID,
		PhotoURL:          d.PhotoURL,
		VisitID:           d.VisitID,
		VerifiedInVisitID: d.VerifiedInVisitID,
		CreatedAt:         d.CreatedAt,
	}
}

// Ensure Client implements the interface
var _ secondary.BackOfficeAPI = (*Client)(nil)
