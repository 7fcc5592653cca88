package nativehost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"

	"go.uber.org/zap"
)

// LaunchRequest asks to open URL in runtime executable at Path.
type LaunchRequest struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// LaunchResponse is sent back to the extension after launch attempt.
type LaunchResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// LaunchFunc starts runtime for the request.
type LaunchFunc func(ctx context.Context, req LaunchRequest) error

var (
	ErrNoExecutable = errors.New("runtime executable path is empty")
	ErrBadURL       = errors.New("document URL must be absolute")
)

// Validate checks request before anything is started.
func (req LaunchRequest) Validate() error {
	if len(req.Path) == 0 {
		return ErrNoExecutable
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("%q: %w", req.URL, errors.Join(ErrBadURL, err))
	}
	if !u.IsAbs() {
		return fmt.Errorf("%q: %w", req.URL, ErrBadURL)
	}
	return nil
}

// Launch starts executable with URL as its only argument. Nothing is passed
// through a shell and the started process is not waited for.
func Launch(ctx context.Context, req LaunchRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	path, err := exec.LookPath(req.Path)
	if err != nil {
		return fmt.Errorf("unable to find runtime executable: %w", err)
	}

	cmd := exec.Command(path, req.URL)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start '%s': %w", path, err)
	}
	// reap it whenever it finishes
	go func() { _ = cmd.Wait() }()
	return nil
}

// Serve handles a single launch message from r and replies to w. Input ending
// before any message is not an error.
func Serve(ctx context.Context, r io.Reader, w io.Writer, launch LaunchFunc, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if launch == nil {
		launch = Launch
	}

	var req LaunchRequest
	if err := ReadMessage(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			log.Debug("No message received")
			return nil
		}
		return err
	}

	log.Debug("Launch requested", zap.String("path", req.Path), zap.String("url", req.URL))

	resp := LaunchResponse{OK: true}
	if err := launch(ctx, req); err != nil {
		log.Error("Unable to launch runtime", zap.String("path", req.Path), zap.Error(err))
		resp = LaunchResponse{Error: err.Error()}
	}
	return WriteMessage(w, resp)
}
