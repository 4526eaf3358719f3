package restyutil

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type dumpCtx struct {
	output    InstrumentOutput
	idcounter *uint64
}

// DumpClient writes a transcript of every request/response pair made
// through the client to `output`. If `output` is nil the function is a no-op.
// Intended for debugging flaky portal interactions, not for production use.
func DumpClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	d := dumpCtx{output: output, idcounter: &idcounter}
	client.OnAfterResponse(d.onAfterResponse)
	client.OnError(d.onError)
}

func (d dumpCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	messageId := strconv.FormatUint(atomic.AddUint64(d.idcounter, 1), 10)
	d.output.Write(messageId, FormatMessage(res))
	slog.DebugContext(
		res.Request.Context(), "request transcript written",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"message_id", messageId,
	)
	return nil
}

func (d dumpCtx) onError(req *resty.Request, err error) {
	slog.ErrorContext(
		req.Context(), "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
	)
}
