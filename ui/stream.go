package ui

import (
	"context"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleStream binds one websocket connection to a dedicated worker. Each
// text message is a contracts.Envelope; each reply is written back as a
// contracts.Reply in submission order. With ?latest=1 replies that have been
// overtaken by a newer request are not sent.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed: %v", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "closed unexpectedly")
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	consumer := consumerFrom(c)
	w, err := s.pool.Attach(consumer)
	if err != nil {
		_ = conn.Close(websocket.StatusTryAgainLater, err.Error())
		return
	}
	s.logger.Debug("stream opened for consumer %s", consumer)

	latest := worker.NewLatest(s.metrics)
	dropStale := c.Query("latest") == "1"

	written := make(chan error, 1)
	go func() {
		written <- s.writeReplies(ctx, conn, w, latest, dropStale)
	}()

	for {
		var env contracts.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.logger.Debug("stream read for consumer %s: %v", consumer, err)
			}
			break
		}

		gen, err := w.Submit(env)
		if err != nil {
			s.logger.Warn("stream submit for consumer %s: %v", consumer, err)
			break
		}
		latest.Issue(gen)
	}

	// queued requests still run; their replies are written or discarded
	_ = s.pool.Detach(consumer)
	if err := <-written; err != nil {
		s.logger.Debug("stream write for consumer %s: %v", consumer, err)
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// writeReplies forwards replies until the worker's results channel closes.
// After the first write error the remaining replies are drained and dropped
// so the worker can finish.
func (s *Server) writeReplies(ctx context.Context, conn *websocket.Conn, w *worker.Worker, latest *worker.Latest, dropStale bool) error {
	var writeErr error
	for reply := range w.Results() {
		if writeErr != nil {
			continue
		}
		if dropStale && !latest.Accept(reply) {
			continue
		}
		writeErr = wsjson.Write(ctx, conn, reply)
	}
	return writeErr
}
