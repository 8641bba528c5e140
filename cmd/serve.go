package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadforge/leadforge-cli/internal/demo"
	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/pipeline"
	"github.com/leadforge/leadforge-cli/internal/store"
	"github.com/leadforge/leadforge-cli/internal/stream"
)

var servePort int

// runLogGrace is how long a finished run's log stays available for a late
// stream subscriber before the hub drops it.
const runLogGrace = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Serves the dashboard API: discovery runs are started over HTTP and
their progress is streamed back over server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		gen, err := newDemoGenerator()
		if err != nil {
			return err
		}

		d := &dashboard{
			ctx:   ctx,
			store: st,
			hub:   stream.NewHub(cfg.Server.StreamBuffer),
			gen:   gen,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: d.router(),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting dashboard server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})

		return g.Wait()
	},
}

// dashboard holds the server dependencies. Runs started over HTTP inherit
// ctx so a shutdown cancels them.
type dashboard struct {
	ctx   context.Context
	store store.Store
	hub   *stream.Hub
	gen   *demo.Generator
}

func (d *dashboard) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", d.handleHealth)
	r.Post("/run/maps", d.handleRunMaps)
	r.Post("/run/linkedin", d.handleRunLinkedIn)
	r.Post("/run/clutch", d.handleRunClutch)
	r.Get("/stream", d.handleStream)
	r.Get("/history", d.handleHistory)
	r.Get("/results/latest", d.handleLatestResults)
	r.Get("/results/{searchID}", d.handleResults)
	r.Get("/stats", d.handleStats)

	return r
}

func (d *dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runRequest struct {
	Category string `json:"category"`
	Role     string `json:"role"`
	Industry string `json:"industry"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
	Demos    bool   `json:"demos"`
}

func (d *dashboard) handleRunMaps(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "category and location are required")
		return
	}

	runID := d.startRun(func(p *pipeline.Pipeline) (*pipeline.Summary, error) {
		return p.Run(d.ctx, req.Category, req.Location, req.Limit, req.Demos)
	}, req.Demos)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (d *dashboard) handleRunLinkedIn(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" || req.Industry == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "role, industry and location are required")
		return
	}

	runID := d.startRun(func(p *pipeline.Pipeline) (*pipeline.Summary, error) {
		return p.RunExpert(d.ctx, model.SourceLinkedIn, req.Role, req.Industry, req.Location, req.Limit)
	}, false)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (d *dashboard) handleRunClutch(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "category and location are required")
		return
	}

	runID := d.startRun(func(p *pipeline.Pipeline) (*pipeline.Summary, error) {
		return p.RunExpert(d.ctx, model.SourceClutch, "", req.Category, req.Location, req.Limit)
	}, false)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// startRun launches a pipeline run in the background and returns its run ID.
// All progress flows through the run's bounded log.
func (d *dashboard) startRun(run func(*pipeline.Pipeline) (*pipeline.Summary, error), demos bool) string {
	runID := uuid.NewString()
	log := d.hub.Open(runID)

	opts := []pipeline.Option{pipeline.WithReporter(log)}
	if demos {
		opts = append(opts, pipeline.WithDemoGenerator(d.gen, cfg.Demo.TopN))
	}
	p := newPipeline(d.store, opts...)

	go func() {
		defer func() {
			log.Close()
			// Drop the log eventually even if nobody ever streams it.
			d.hub.ReleaseAfter(runID, runLogGrace)
		}()
		sum, err := run(p)
		if err != nil {
			log.Printf("Run failed: %v", err)
			zap.L().Error("dashboard run failed", zap.String("run_id", runID), zap.Error(err))
			return
		}
		log.Printf("Run complete: %d found, %d valid, %d saved.", sum.Found, sum.Valid, sum.Saved)
	}()

	return runID
}

func (d *dashboard) handleStream(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	log, ok := d.hub.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-log.Events():
			if !open {
				d.hub.Release(runID)
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if ev.Done {
				d.hub.Release(runID)
				return
			}
		}
	}
}

func (d *dashboard) handleHistory(w http.ResponseWriter, r *http.Request) {
	searches, err := d.store.RecentSearches(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": searches})
}

// handleLatestResults serves the leads of the most recent search.
func (d *dashboard) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	searches, err := d.store.RecentSearches(r.Context(), 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(searches) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"search": nil, "leads": []model.Lead{}})
		return
	}

	leads, err := d.store.ListLeads(r.Context(), store.LeadFilter{SearchID: searches[0].ID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"search": searches[0], "leads": leads})
}

func (d *dashboard) handleResults(w http.ResponseWriter, r *http.Request) {
	searchID, err := strconv.ParseInt(chi.URLParam(r, "searchID"), 10, 64)
	if err != nil || searchID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid search id")
		return
	}

	leads, err := d.store.ListLeads(r.Context(), store.LeadFilter{SearchID: searchID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

func (d *dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := d.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
