package exec

import (
	"context"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/ftp"
)

// Run starts executing root against retry (a retry token already sized
// to root.TaskIndexLen()) and returns the execution stream. The stream
// closes once root's own terminal FunctionExecutionChunk has been sent.
func Run(ctx context.Context, root *ftp.FunctionFTP, retry domain.RetryToken, req Request, client Client, fetchers Fetchers) <-chan StreamItem {
	out := make(chan StreamItem, 16)
	go func() {
		defer close(out)
		executeFunctionSubtree(ctx, root, retry, req, client, fetchers, out)
	}()
	return out
}
