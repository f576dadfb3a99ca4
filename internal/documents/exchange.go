package documents

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/inflight"
	"github.com/nurpe/lab-review/internal/model"
)

var (
	ErrNotPDF       = errors.New("only PDF files can be uploaded")
	ErrEmptyFile    = errors.New("file is empty")
	ErrInvalidID    = errors.New("invalid id")
	ErrUnknownKind  = errors.New("unknown download kind")
	ErrInProgress   = errors.New("this row already has a transfer in progress")
	ErrUploadFailed = errors.New("upload was not accepted by the server")
)

const pdfMIME = "application/pdf"

// API is the part of the remote gateway used for file transfers.
type API interface {
	PostMultipart(ctx context.Context, path, field, fileName, contentType string, content []byte) (*gateway.Response, error)
	GetBlob(ctx context.Context, path string) (*gateway.Blob, error)
}

// Saver hands a downloaded file to whatever the runtime uses to store it.
type Saver interface {
	SaveBinary(ctx context.Context, data []byte, fileName, mimeType string) error
}

type Kind string

const (
	KindContractQR    Kind = "contract-qr"
	KindAppointmentQR Kind = "appointment-qr"
	KindContractPDF   Kind = "contract-pdf"
	KindResultPDF     Kind = "result-pdf"
)

type kindSpec struct {
	path     string
	mimeType string
	fileName func(id model.ID, number string) string
}

var kinds = map[Kind]kindSpec{
	KindContractQR: {
		path:     "contracts/qrcode/%d",
		mimeType: "image/png",
		fileName: func(id model.ID, number string) string {
			return fmt.Sprintf("qrcode-%s.png", label(id, number))
		},
	},
	KindAppointmentQR: {
		path:     "appointment/downloadqrcode/%d",
		mimeType: "image/png",
		fileName: func(id model.ID, number string) string {
			return fmt.Sprintf("qrcode-%s.png", label(id, number))
		},
	},
	KindContractPDF: {
		path:     "contracts/pdf/%d",
		mimeType: pdfMIME,
		fileName: func(id model.ID, number string) string {
			return fmt.Sprintf("contract_%s.pdf", label(id, number))
		},
	},
	KindResultPDF: {
		path:     "appointment/result/pdf/%d",
		mimeType: pdfMIME,
		fileName: func(id model.ID, _ string) string {
			return fmt.Sprintf("document_%d.pdf", id)
		},
	},
}

func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kinds[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
	return kind, nil
}

type Upload struct {
	FileName    string
	ContentType string
	Content     []byte
}

type DownloadRequest struct {
	Kind Kind
	// ID is the contract id, or the document id for KindResultPDF.
	ID     model.ID
	Number string
}

// File describes a download that was handed to a Saver.
type File struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

type Exchange struct {
	api      API
	inFlight *inflight.Tracker
	log      zerolog.Logger
}

func NewExchange(api API, log zerolog.Logger) *Exchange {
	return &Exchange{
		api:      api,
		inFlight: inflight.NewTracker(),
		log:      log,
	}
}

// Upload sends a worker's result PDF for a contract. Non-PDF files are
// refused before any request is made.
func (e *Exchange) Upload(ctx context.Context, contractID model.ID, upload Upload) error {
	if !contractID.Valid() {
		return ErrInvalidID
	}
	if err := checkPDF(upload); err != nil {
		return err
	}

	key := rowKey("upload", contractID)
	if !e.inFlight.Begin(key) {
		return ErrInProgress
	}
	defer e.inFlight.End(key)

	fileName := strings.TrimSpace(upload.FileName)
	if fileName == "" {
		fileName = fmt.Sprintf("result_%d.pdf", contractID)
	}

	resp, err := e.api.PostMultipart(ctx, fmt.Sprintf("contracts/upload-pdf/%d", contractID), "file", fileName, pdfMIME, upload.Content)
	if err != nil {
		e.log.Error().Err(err).Int64("contract_id", int64(contractID)).Msg("upload result failed")
		return err
	}
	if success, ok := gateway.Dig(resp.Body, "success"); ok && string(success) == "false" {
		message := gateway.ExtractMessage(resp.Body)
		e.log.Warn().Int64("contract_id", int64(contractID)).Str("message", message).Msg("upload refused")
		if message == "" {
			return ErrUploadFailed
		}
		return fmt.Errorf("%w: %s", ErrUploadFailed, message)
	}

	e.log.Info().Int64("contract_id", int64(contractID)).Int("size", len(upload.Content)).Msg("result uploaded")
	return nil
}

// Download fetches a binary resource and passes it to saver. The row flag
// is cleared once the call settles, whatever the outcome.
func (e *Exchange) Download(ctx context.Context, req DownloadRequest, saver Saver) (*File, error) {
	kind, ok := kinds[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	if !req.ID.Valid() {
		return nil, ErrInvalidID
	}

	key := rowKey(string(req.Kind), req.ID)
	if !e.inFlight.Begin(key) {
		return nil, ErrInProgress
	}
	defer e.inFlight.End(key)

	blob, err := e.api.GetBlob(ctx, fmt.Sprintf(kind.path, req.ID))
	if err != nil {
		e.log.Error().Err(err).Str("kind", string(req.Kind)).Int64("id", int64(req.ID)).Msg("download failed")
		return nil, err
	}

	file := &File{
		Name:     kind.fileName(req.ID, req.Number),
		MIMEType: blobType(blob.ContentType, kind.mimeType),
		Size:     len(blob.Data),
	}
	if err := saver.SaveBinary(ctx, blob.Data, file.Name, file.MIMEType); err != nil {
		return nil, fmt.Errorf("save %s: %w", file.Name, err)
	}
	return file, nil
}

// Downloading reports whether a download of kind for id is running.
func (e *Exchange) Downloading(kind Kind, id model.ID) bool {
	return e.inFlight.Active(rowKey(string(kind), id))
}

func (e *Exchange) Uploading(contractID model.ID) bool {
	return e.inFlight.Active(rowKey("upload", contractID))
}

func checkPDF(upload Upload) error {
	if len(upload.Content) == 0 {
		return ErrEmptyFile
	}
	if declared := strings.TrimSpace(upload.ContentType); declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil || mediaType != pdfMIME {
			return ErrNotPDF
		}
	}
	if !mimetype.Detect(upload.Content).Is(pdfMIME) {
		return ErrNotPDF
	}
	return nil
}

// blobType keeps a specific type sent by the server and otherwise falls
// back to the type expected for the kind.
func blobType(received, fallback string) string {
	mediaType, _, err := mime.ParseMediaType(received)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return fallback
	}
	return mediaType
}

func rowKey(kind string, id model.ID) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func label(id model.ID, number string) string {
	if clean := sanitizeFileName(number); clean != "" {
		return clean
	}
	return id.String()
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
