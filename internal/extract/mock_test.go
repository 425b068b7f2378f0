package extract

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/attestix/compliance-cli/internal/model"
)

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockStore) SetDocumentExtractionStatus(ctx context.Context, id string, status model.ExtractionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) SavePages(ctx context.Context, documentID string, pages []model.DocumentPage) error {
	return m.Called(ctx, documentID, pages).Error(0)
}

func (m *mockStore) ListDocumentPages(ctx context.Context, documentID string) ([]model.DocumentPage, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentPage), args.Error(1)
}

func (m *mockStore) GetControl(ctx context.Context, id string) (*model.Control, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Control), args.Error(1)
}

func (m *mockStore) ListRequirements(ctx context.Context, controlID string) ([]model.Requirement, error) {
	args := m.Called(ctx, controlID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Requirement), args.Error(1)
}

func (m *mockStore) ListEvidenceLinks(ctx context.Context, orgID, controlID string) ([]model.EvidenceLink, error) {
	args := m.Called(ctx, orgID, controlID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EvidenceLink), args.Error(1)
}

func (m *mockStore) CreateScan(ctx context.Context, scan *model.Scan) error {
	return m.Called(ctx, scan).Error(0)
}

func (m *mockStore) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Scan), args.Error(1)
}

func (m *mockStore) StartScanRun(ctx context.Context, id, modelID, promptVersion string) error {
	return m.Called(ctx, id, modelID, promptVersion).Error(0)
}

func (m *mockStore) UpdateScanStatus(ctx context.Context, id string, status model.ScanStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) SaveScanOutput(ctx context.Context, scanID string, results []model.ScanResult, gaps []model.Gap) error {
	return m.Called(ctx, scanID, results, gaps).Error(0)
}

func (m *mockStore) ListScanResults(ctx context.Context, scanID string) ([]model.ScanResult, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScanResult), args.Error(1)
}

func (m *mockStore) ListGaps(ctx context.Context, scanID string) ([]model.Gap, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Gap), args.Error(1)
}

func (m *mockStore) DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Storage mock ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

// --- Extractor mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, data []byte, filename, mimeType string) ([]Page, error) {
	args := m.Called(ctx, data, filename, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Page), args.Error(1)
}
