package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"upload-ai/application/form"
	"upload-ai/domain/video"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templatesFS embed.FS

// SessionCookie binds a browser to its form
const SessionCookie = "upload_ai_session"

// Defaults for server options
const (
	DefaultBodyLimit     = 512 << 20
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSubmitTimeout = 10 * time.Minute

	minSweepInterval = time.Second
)

// FormFactory creates a fresh form for a new session
type FormFactory func() *form.VideoInputForm

// PreviewLookup resolves preview tokens to videos
type PreviewLookup interface {
	Lookup(token string) (*video.SelectedVideo, bool)
}

type session struct {
	form     *form.VideoInputForm
	lastSeen time.Time
}

// Server serves the video input form over HTTP. Every browser session owns
// one form; forms idle for longer than the session TTL are closed.
type Server struct {
	app      *fiber.App
	newForm  FormFactory
	previews PreviewLookup
	output   io.Writer

	bodyLimit     int
	sessionTTL    time.Duration
	submitTimeout time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// Option is a functional option for configuring Server
type Option func(*Server)

// WithOutput sets the diagnostic stream
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		if w != nil {
			s.output = w
		}
	}
}

// WithBodyLimit sets the maximum upload size in bytes
func WithBodyLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bodyLimit = n
		}
	}
}

// WithSessionTTL sets how long an idle session is kept
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithSubmitTimeout bounds a single conversion
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithClock overrides the clock used for session expiry (for testing)
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a server and registers its routes
func NewServer(newForm FormFactory, previews PreviewLookup, opts ...Option) *Server {
	s := &Server{
		newForm:       newForm,
		previews:      previews,
		output:        io.Discard,
		bodyLimit:     DefaultBodyLimit,
		sessionTTL:    DefaultSessionTTL,
		submitTimeout: DefaultSubmitTimeout,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}

	for _, opt := range opts {
		opt(s)
	}

	views, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}

	s.app = fiber.New(fiber.Config{
		Views:                 html.NewFileSystem(http.FS(views), ".html"),
		BodyLimit:             s.bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()

	return s
}

// App exposes the fiber application (for testing)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/state", s.handleState)
	s.app.Post("/video", s.handleSelect)
	s.app.Post("/submit", s.handleSubmit)
	s.app.Get("/preview/:token", s.handlePreview)
	s.app.Delete("/session", s.handleClose)
}

// Run serves on addr until ctx is cancelled, then closes every session
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	fmt.Fprintf(s.output, "Serving form on %s\n", addr)

	select {
	case err := <-errCh:
		s.closeAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := s.app.ShutdownWithContext(shutdownCtx)
	s.closeAll()
	return err
}

// sweepInterval is half the TTL, but never below minSweepInterval
func (s *Server) sweepInterval() time.Duration {
	return max(s.sessionTTL/2, minSweepInterval)
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				fmt.Fprintf(s.output, "Closed %d idle session(s)\n", n)
			}
		}
	}
}

// Sweep closes sessions idle for longer than the TTL and returns how many
func (s *Server) Sweep() int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.form.Close()
	}
	return len(expired)
}

// Sessions returns the number of open sessions
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.form.Close()
	}
}

// session returns the caller's form, creating a session when create is set
func (s *Server) session(c *fiber.Ctx, create bool) *form.VideoInputForm {
	id := c.Cookies(SessionCookie)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = s.now()
		return sess.form
	}
	if !create {
		return nil
	}

	id = uuid.NewString()
	s.sessions[id] = &session{form: s.newForm(), lastSeen: s.now()}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return s.sessions[id].form
}

type indexData struct {
	Accept     string
	PreviewURL string
	State      video.FormState
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	f := s.session(c, true)
	return c.Render("index", indexData{
		Accept:     video.AcceptMimeType,
		PreviewURL: f.PreviewURL(),
		State:      f.State(),
	})
}

type stateResponse struct {
	State      video.FormState `json:"state"`
	Video      string          `json:"video,omitempty"`
	PreviewURL string          `json:"preview_url,omitempty"`
}

func describe(f *form.VideoInputForm) stateResponse {
	resp := stateResponse{State: f.State(), PreviewURL: f.PreviewURL()}
	if v := f.Selected(); v != nil {
		resp.Video = v.Name
	}
	return resp
}

func (s *Server) handleState(c *fiber.Ctx) error {
	f := s.session(c, false)
	if f == nil {
		return c.JSON(stateResponse{State: video.StateIdle})
	}
	return c.JSON(describe(f))
}

func (s *Server) handleSelect(c *fiber.Ctx) error {
	f := s.session(c, true)

	files, err := uploadedVideos(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := f.SelectFile(files); err != nil {
		return err
	}
	if len(files) > 0 {
		fmt.Fprintf(s.output, "Selected %s (%d bytes)\n", files[0].Name, files[0].Size())
	}
	return c.JSON(describe(f))
}

// uploadedVideos reads the "video" multipart field. A request without a
// file yields an empty selection.
func uploadedVideos(c *fiber.Ctx) ([]*video.SelectedVideo, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	var files []*video.SelectedVideo
	for _, fh := range mf.File["video"] {
		r, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		v, err := video.NewSelectedVideo(fh.Filename, fh.Header.Get("Content-Type"), data)
		if err != nil {
			return nil, err
		}
		files = append(files, v)
	}
	return files, nil
}

type audioResponse struct {
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
}

type submitResponse struct {
	Video    string          `json:"video"`
	Audio    audioResponse   `json:"audio"`
	Prompt   string          `json:"prompt"`
	Keywords []string        `json:"keywords"`
	State    video.FormState `json:"state"`
}

type errorResponse struct {
	Stage video.Stage `json:"stage,omitempty"`
	Error string      `json:"error"`
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	f := s.session(c, true)
	prompt := video.TranscriptionPrompt(c.FormValue("prompt"))

	ctx, cancel := context.WithTimeout(c.UserContext(), s.submitTimeout)
	defer cancel()

	result, err := f.Submit(ctx, prompt)
	if err != nil {
		return err
	}
	if result == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(submitResponse{
		Video: result.Video,
		Audio: audioResponse{
			Name:     result.Audio.Name,
			MimeType: result.Audio.MimeType,
			Size:     result.Audio.Size(),
		},
		Prompt:   result.Prompt.String(),
		Keywords: result.Prompt.Keywords(),
		State:    f.State(),
	})
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	v, ok := s.previews.Lookup(c.Params("token"))
	if !ok {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, v.MimeType)
	return c.Send(v.Data)
}

func (s *Server) handleClose(c *fiber.Ctx) error {
	id := c.Cookies(SessionCookie)

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.form.Close()
	}
	c.ClearCookie(SessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleError maps pipeline failures to 422 with the failed stage
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	if stage, ok := video.FailedStage(err); ok {
		fmt.Fprintf(s.output, "Submit failed: %v\n", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Stage: stage, Error: err.Error()})
	}

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(errorResponse{Error: fe.Message})
	case errors.Is(err, form.ErrFormClosed):
		return c.Status(fiber.StatusGone).JSON(errorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(errorResponse{Error: err.Error()})
	}

	fmt.Fprintf(s.output, "Request failed: %v\n", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
}
