package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/topichub/internal/errs"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()

	ctx = peer.NewContext(ctx, &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: Method("Me")}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: Method("Feed")}

	panicH := func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	}

	_, err := ic(ctx, "req", info, panicH)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: Method("ListTopics")}

	h := func(ctx context.Context, req any) (any, error) { return 42, nil }

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(int) != 42 {
		t.Fatalf("resp mismatch: %v", resp)
	}
}

func TestLoggingUnary_DurationFieldDoesNotBlock(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: Method("Login")}
	h := func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}

	start := time.Now()
	resp, err := ic(ctx, "req", info, h)
	if err != nil || resp.(string) != "done" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("duration should reflect handler time")
	}
}

type fakeAuthenticator struct {
	calls int
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, raw string) (string, error) {
	f.calls++
	if raw == "good" {
		return "alice@x.com", nil
	}
	return "", errs.ErrTokenInvalid
}

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	fa := &fakeAuthenticator{}
	ic := AuthUnary(fa)

	var seen string
	h := func(ctx context.Context, req any) (any, error) {
		seen, _ = PrincipalFromCtx(ctx)
		return "ok", nil
	}
	withToken := func(tok string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	}

	// public and foreign methods skip the check
	for _, m := range []string{Method("Register"), Method("Login"), "/grpc.health.v1.Health/Check"} {
		if _, err := ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: m}, h); err != nil {
			t.Fatalf("%s: unexpected err: %v", m, err)
		}
	}
	if fa.calls != 0 {
		t.Fatalf("public methods must not authenticate")
	}

	info := &grpc.UnaryServerInfo{FullMethod: Method("Me")}
	if _, err := ic(context.Background(), nil, info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated without metadata, got %v", err)
	}
	if _, err := ic(withToken("bad"), nil, info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated on bad token, got %v", err)
	}
	if _, err := ic(withToken("good"), nil, info, h); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen != "alice@x.com" {
		t.Fatalf("principal not propagated: %q", seen)
	}
}

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer xyz"))
	if got, err := bearerTokenFromMD(ctx); err != nil || got != "xyz" {
		t.Fatalf("scheme is case-insensitive: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func TestPrincipalCtx(t *testing.T) {
	t.Parallel()

	if p, ok := PrincipalFromCtx(context.Background()); ok || p != "" {
		t.Fatalf("expected no principal in empty ctx")
	}
	if _, ok := PrincipalFromCtx(WithPrincipal(context.Background(), "")); ok {
		t.Fatalf("empty principal must not count")
	}
	got, ok := PrincipalFromCtx(WithPrincipal(context.Background(), "alice"))
	if !ok || got != "alice" {
		t.Fatalf("mismatch: got %q", got)
	}
}

func Test_remoteIP(t *testing.T) {
	t.Parallel()

	if remoteIP(context.Background()) != "" {
		t.Fatalf("no peer must give empty ip")
	}
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	if got := remoteIP(ctx); got != "127.0.0.1" {
		t.Fatalf("port must be stripped, got %q", got)
	}
}
