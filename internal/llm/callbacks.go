package llm

import (
	"context"
	"os"
	"time"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
	"github.com/sirupsen/logrus"
)

// SetupTracing registers the cozeloop callback handler when the
// COZE_LOOP_API_TOKEN and COZELOOP_WORKSPACE_ID environment variables are
// both set, and returns a shutdown func that flushes pending spans. With
// either variable missing, tracing is a no-op.
func SetupTracing(ctx context.Context, logger *logrus.Logger) (func(), error) {
	token := os.Getenv("COZE_LOOP_API_TOKEN")
	workspace := os.Getenv("COZELOOP_WORKSPACE_ID")
	if token == "" || workspace == "" {
		return func() {}, nil
	}

	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(token),
		cozeloop.WithWorkspaceID(workspace),
	)
	if err != nil {
		return nil, err
	}

	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))
	logger.Info("cozeloop tracing enabled")

	return func() {
		// Give the exporter a moment to drain before closing.
		time.Sleep(5 * time.Second)
		client.Close(ctx)
	}, nil
}
