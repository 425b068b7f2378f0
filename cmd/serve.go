package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/dispatch"
	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/storage"
	"github.com/attestix/compliance-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake HTTP server",
	Long:  "Accepts document uploads and scan requests, and exposes scan status with results and gaps.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		mux := newServeMux(e.Store, e.Storage, e.Dispatcher, cfg.Server.MaxUploadMB)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newServeMux(st store.Store, blob storage.Storage, enq dispatch.Enqueuer, maxUploadMB int) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /documents", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, int64(maxUploadMB)<<20)
		if err := r.ParseMultipartForm(int64(maxUploadMB) << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		orgID := r.FormValue("org_id")
		if orgID == "" {
			writeError(w, http.StatusBadRequest, "org_id is required")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read upload")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		doc := &model.Document{
			ID:         uuid.New().String(),
			OrgID:      orgID,
			Filename:   header.Filename,
			MimeType:   mimeType,
			StorageKey: fmt.Sprintf("%s/%s/%s", orgID, uuid.New().String(), header.Filename),
		}

		if err := blob.Upload(r.Context(), doc.StorageKey, data, mimeType); err != nil {
			zap.L().Error("upload failed", zap.String("key", doc.StorageKey), zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not store upload")
			return
		}

		if err := st.CreateDocument(r.Context(), doc); err != nil {
			zap.L().Error("create document failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not create document")
			return
		}

		if err := enq.EnqueueExtraction(r.Context(), doc.ID); err != nil {
			zap.L().Error("enqueue extraction failed", zap.String("document_id", doc.ID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not enqueue extraction")
			return
		}

		writeJSON(w, http.StatusAccepted, doc)
	})

	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, err := st.GetDocument(r.Context(), r.PathValue("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "document not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "could not load document")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	mux.HandleFunc("POST /scans", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrgID     string `json:"org_id"`
			ControlID string `json:"control_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.OrgID == "" || req.ControlID == "" {
			writeError(w, http.StatusBadRequest, "org_id and control_id are required")
			return
		}

		scan := &model.Scan{
			ID:        uuid.New().String(),
			OrgID:     req.OrgID,
			ControlID: req.ControlID,
			Status:    model.ScanStatusQueued,
		}

		if err := st.CreateScan(r.Context(), scan); err != nil {
			zap.L().Error("create scan failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not create scan")
			return
		}

		if err := enq.EnqueueScan(r.Context(), scan.ID); err != nil {
			zap.L().Error("enqueue scan failed", zap.String("scan_id", scan.ID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not enqueue scan")
			return
		}

		writeJSON(w, http.StatusAccepted, scan)
	})

	mux.HandleFunc("GET /scans/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		scan, err := st.GetScan(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "scan not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "could not load scan")
			return
		}

		resp := map[string]any{"scan": scan}
		if scan.Status == model.ScanStatusCompleted {
			results, err := st.ListScanResults(r.Context(), id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "could not load results")
				return
			}
			gaps, err := st.ListGaps(r.Context(), id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "could not load gaps")
				return
			}
			resp["results"] = results
			resp["gaps"] = gaps
		}

		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
