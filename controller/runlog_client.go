package controller

import (
	"context"

	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/runlog"
)

type runLogClient interface {
	Upload(ctx context.Context, robot, settingsLine string, stats linefollower.Statistics) (*runlog.Run, error)
}

type noopRunLogClient struct{}

var _ runLogClient = noopRunLogClient{}

// Upload implements runLogClient.
func (noopRunLogClient) Upload(context.Context, string, string, linefollower.Statistics) (*runlog.Run, error) {
	return nil, nil
}
