// Package runlog stores run summaries uploaded by the host so runs with different settings can be
// compared later
package runlog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calvinmclean/babyapi"
	"go.uber.org/zap"

	"github.com/calvinmclean/linefollower"
)

const basePath = "/runs"

// Run is a single follow-path run
type Run struct {
	babyapi.DefaultResource

	Robot      string                  `json:"robot"`
	Settings   string                  `json:"settings,omitempty"`
	Statistics linefollower.Statistics `json:"statistics"`
	UploadedAt time.Time               `json:"uploaded_at"`
}

func (r *Run) Bind(req *http.Request) error {
	err := r.DefaultResource.Bind(req)
	if err != nil {
		return err
	}

	if req.Method == http.MethodPost {
		if r.Robot == "" {
			return errors.New("missing required robot field")
		}
		if r.Statistics.Loops == 0 {
			return errors.New("run has no loops")
		}
		r.UploadedAt = time.Now()
	}
	return nil
}

// NewAPI creates the run log API
func NewAPI() *babyapi.API[*Run] {
	return babyapi.NewAPI("Runs", basePath, func() *Run { return &Run{} })
}

// Serve runs the API until ctx is done. An empty addr uses babyapi's default of ":8080".
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	logger.Info("serving run log", zap.String("addr", addr))
	return NewAPI().SetAddress(addr).WithContext(ctx).Serve()
}

// Client uploads and reads runs
type Client struct {
	client *babyapi.Client[*Run]
}

func NewClient(addr string) *Client {
	return &Client{client: babyapi.NewClient[*Run](addr, basePath)}
}

// Upload stores a run summary along with the settings line that was active for it
func (c *Client) Upload(ctx context.Context, robot, settingsLine string, stats linefollower.Statistics) (*Run, error) {
	resp, err := c.client.Post(ctx, &Run{
		Robot:      robot,
		Settings:   settingsLine,
		Statistics: stats,
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading run: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Run, error) {
	resp, err := c.client.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting run: %w", err)
	}
	return resp.Data, nil
}
