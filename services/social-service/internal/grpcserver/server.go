//go:build protogen

package grpcserver

import (
	"context"

	socialv1 "github.com/abidoyedimeji-cell/dana/protos/gen/social/v1"
	"github.com/abidoyedimeji-cell/dana/services/social-service/internal/storage"
	"google.golang.org/grpc"
)

type server struct {
	socialv1.UnimplementedSocialGraphServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	socialv1.RegisterSocialGraphServiceServer(grpcServer, &server{repo: repo})
}

func (s *server) AreUsersConnected(ctx context.Context, req *socialv1.AreUsersConnectedRequest) (*socialv1.AreUsersConnectedResponse, error) {
	if req.GetUserA() == "" || req.GetUserB() == "" {
		return &socialv1.AreUsersConnectedResponse{Connected: false}, nil
	}
	connected, err := s.repo.Connected(ctx, req.GetUserA(), req.GetUserB())
	if err != nil {
		return nil, err
	}
	return &socialv1.AreUsersConnectedResponse{Connected: connected}, nil
}
