package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/wuxia2kindle/wuxia2kindle/route-handlers"
	"github.com/wuxia2kindle/wuxia2kindle/scheduler"
	"github.com/wuxia2kindle/wuxia2kindle/webutil"
)

const (
	apiBasePath      = "/api"
	booksBasePath    = "/books"
	chaptersBasePath = "/chapters"
	exportsBasePath  = "/exports"
)

const (
	paramID = "id"
)

func SetupRoutes(
	bookHandler *rh.BookHandler,
	chapterHandler *rh.ChapterHandler,
	exportHandler *rh.ExportHandler,
	sched *scheduler.Scheduler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route(apiBasePath, func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8))
		configureBookRoutes(r, bookHandler)
		configureChapterRoutes(r, chapterHandler)
		configureExportRoutes(r, exportHandler)
	})

	// Manual trigger for the export pipeline, alongside its timer. Kept
	// outside the request timeout: cancelling a tick mid-batch would
	// strand claimed rows in the processing state.
	r.Post("/scheduler/tick", sched.HandleTick)

	r.Get("/healthz", handleHealthCheck)

	return r
}

func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

func configureBookRoutes(r chi.Router, handler *rh.BookHandler) {
	specificBookPath := pathWithParam("", paramID)

	r.Route(booksBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetBooks))
		r.Route(specificBookPath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetBook))
			r.Patch("/", webutil.MakeHandler(handler.HandleUpdateBook))
			r.Get(chaptersBasePath, webutil.MakeHandler(handler.HandleGetBookChapters)) // GET /books/{id}/chapters
		})
	})
}

func configureChapterRoutes(r chi.Router, handler *rh.ChapterHandler) {
	r.Post(chaptersBasePath, webutil.MakeHandler(handler.HandleAddChapter))
}

func configureExportRoutes(r chi.Router, handler *rh.ExportHandler) {
	r.Route(exportsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetExports))
		r.Post("/", webutil.MakeHandler(handler.HandleEnqueueExport))
	})
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}
