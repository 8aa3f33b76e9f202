// Package grpcserver exposes the MDD gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/topichub/internal/convert"
	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
	"github.com/and161185/topichub/internal/service"
)

var _ API = (*Server)(nil)

// Server wires services into gRPC handlers.
type Server struct {
	auth     service.AuthService
	users    service.UserService
	topics   service.TopicService
	posts    service.PostService
	comments service.CommentService
	log      *zap.Logger
}

// Services groups the application services a Server dispatches to.
type Services struct {
	Auth     service.AuthService
	Users    service.UserService
	Topics   service.TopicService
	Posts    service.PostService
	Comments service.CommentService
}

// New constructs a gRPC server with injected services.
func New(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		auth:     svc.Auth,
		users:    svc.Users,
		topics:   svc.Topics,
		posts:    svc.Posts,
		comments: svc.Comments,
		log:      log,
	}
}

// toStatus maps domain errors onto gRPC status codes.
func (s *Server) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrAlreadySubscribed), errors.Is(err, errs.ErrNotSubscribed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Error(codes.Aborted, "version conflict, retry")
	default:
		s.log.Error(op, zap.Error(err))
		return status.Error(codes.Internal, "internal")
	}
}

// remoteIP returns the peer host without port so that reconnects share a limiter bucket.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// caller resolves the authenticated principal to its profile.
// A principal that no longer resolves (email changed) is treated as unauthenticated.
func (s *Server) caller(ctx context.Context) (model.Profile, error) {
	principal, ok := PrincipalFromCtx(ctx)
	if !ok {
		return model.Profile{}, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.users.Me(ctx, principal)
	if errors.Is(err, errs.ErrUserNotFound) {
		return model.Profile{}, status.Error(codes.Unauthenticated, "unknown principal")
	}
	if err != nil {
		return model.Profile{}, s.toStatus("me", err)
	}
	return p, nil
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.auth.Register(ctx, convert.Str(in, "username"), convert.Str(in, "email"), convert.Str(in, "password"))
	if err != nil {
		return nil, s.toStatus("register", err)
	}
	return convert.ToProfile(p), nil
}

// Login authenticates by email or username and returns a bearer token.
func (s *Server) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identifier := convert.Str(in, "identifier")
	if identifier == "" {
		identifier = convert.Str(in, "email")
	}
	if identifier == "" {
		identifier = convert.Str(in, "username")
	}
	tok, p, err := s.auth.Login(ctx, identifier, convert.Str(in, "password"), remoteIP(ctx))
	if err != nil {
		return nil, s.toStatus("login", err)
	}
	return convert.ToAuth(tok, p), nil
}

// --- Profile and memberships ---

// Me returns the caller's profile.
func (s *Server) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return convert.ToProfile(p), nil
}

// UpdateMe changes the caller's username and email.
func (s *Server) UpdateMe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	principal, ok := PrincipalFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.users.UpdateProfile(ctx, principal, convert.Str(in, "username"), convert.Str(in, "email"))
	if err != nil {
		return nil, s.toStatus("update profile", err)
	}
	return convert.ToProfile(p), nil
}

// Subscribe adds topicId to the caller's memberships.
func (s *Server) Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.membership(ctx, in, "subscribe", s.users.Subscribe)
}

// Unsubscribe removes topicId from the caller's memberships.
func (s *Server) Unsubscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.membership(ctx, in, "unsubscribe", s.users.Unsubscribe)
}

func (s *Server) membership(ctx context.Context, in *structpb.Struct, op string, fn func(context.Context, int64, int64) (model.Profile, error)) (*structpb.Struct, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	topicID, err := convert.Int(in, "topicId")
	if err != nil {
		return nil, s.toStatus(op, err)
	}
	p, err := fn(ctx, me.ID, topicID)
	if err != nil {
		return nil, s.toStatus(op, err)
	}
	return convert.ToProfile(p), nil
}

// --- Content ---

// ListTopics returns every topic.
func (s *Server) ListTopics(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ts, err := s.topics.List(ctx)
	if err != nil {
		return nil, s.toStatus("list topics", err)
	}
	return convert.ToTopics(ts), nil
}

// Feed returns posts of the caller's subscribed topics.
func (s *Server) Feed(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	vs, err := s.posts.Feed(ctx, me.SubscribedTopicIDs)
	if err != nil {
		return nil, s.toStatus("feed", err)
	}
	return convert.ToPosts(vs), nil
}

// CreatePost publishes a post authored by the caller.
func (s *Server) CreatePost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	topicID, err := convert.Int(in, "topicId")
	if err != nil {
		return nil, s.toStatus("create post", err)
	}
	v, err := s.posts.Create(ctx, me.ID, topicID, model.PostInput{
		Title:   convert.Str(in, "title"),
		Content: convert.Str(in, "content"),
	})
	if err != nil {
		return nil, s.toStatus("create post", err)
	}
	return convert.ToPost(v), nil
}

// ListComments returns the comments of postId.
func (s *Server) ListComments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	postID, err := convert.Int(in, "postId")
	if err != nil {
		return nil, s.toStatus("list comments", err)
	}
	vs, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, s.toStatus("list comments", err)
	}
	return convert.ToComments(vs), nil
}

// CreateComment adds a comment by the caller to postId.
func (s *Server) CreateComment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	postID, err := convert.Int(in, "postId")
	if err != nil {
		return nil, s.toStatus("create comment", err)
	}
	v, err := s.comments.Create(ctx, me.ID, postID, model.CommentInput{Content: convert.Str(in, "content")})
	if err != nil {
		return nil, s.toStatus("create comment", err)
	}
	return convert.ToComment(v), nil
}
