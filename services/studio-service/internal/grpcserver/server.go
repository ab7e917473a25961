package grpcserver

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/inkdesk/libs/grpcx"
	"google.golang.org/grpc"
)

// Start serves the health service on lis and stops gracefully when ctx ends.
// Callers drive h with h.Run.
func Start(ctx context.Context, logger *slog.Logger, lis net.Listener, h *Health) *grpc.Server {
	srv := grpc.NewServer(grpcx.ServerOptions()...)
	h.Register(srv)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return srv
}
