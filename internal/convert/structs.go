// Package convert maps domain values to and from the structpb messages carried over gRPC.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
)

// --- helpers ---

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func num(n int64) *structpb.Value { return structpb.NewNumberValue(float64(n)) }

func ts(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

func ids(xs []int64) *structpb.Value {
	vs := make([]*structpb.Value, 0, len(xs))
	for _, x := range xs {
		vs = append(vs, num(x))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vs})
}

func list[T any](xs []T, fn func(T) *structpb.Struct) *structpb.Value {
	vs := make([]*structpb.Value, 0, len(xs))
	for _, x := range xs {
		vs = append(vs, structpb.NewStructValue(fn(x)))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vs})
}

// --- server -> client ---

// ToProfile renders a profile. Credentials never reach this layer.
func ToProfile(p model.Profile) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":                 num(p.ID),
		"username":           str(p.Username),
		"email":              str(p.Email),
		"subscribedTopicIds": ids(p.SubscribedTopicIDs),
		"createdAt":          ts(p.CreatedAt),
		"updatedAt":          ts(p.UpdatedAt),
	}}
}

// ToAuth renders the login response: token, its expiry and the user.
func ToAuth(tok model.Tokens, p model.Profile) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"token":     str(tok.AccessToken),
		"expiresAt": ts(tok.ExpiresAt),
		"user":      structpb.NewStructValue(ToProfile(p)),
	}}
}

// ToTopic renders a topic.
func ToTopic(t model.Topic) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":          num(t.ID),
		"title":       str(t.Title),
		"description": str(t.Description),
	}}
}

// ToTopics wraps topics under "topics".
func ToTopics(topics []model.Topic) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"topics": list(topics, ToTopic)}}
}

// ToPost renders an enriched post.
func ToPost(v model.PostView) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         num(v.ID),
		"title":      str(v.Title),
		"content":    str(v.Content),
		"authorId":   num(v.AuthorID),
		"topicId":    num(v.TopicID),
		"username":   str(v.Username),
		"topicTitle": str(v.TopicTitle),
		"commentIds": ids(v.CommentIDs),
		"createdAt":  ts(v.CreatedAt),
	}}
}

// ToPosts wraps posts under "posts".
func ToPosts(vs []model.PostView) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"posts": list(vs, ToPost)}}
}

// ToComment renders an enriched comment.
func ToComment(v model.CommentView) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        num(v.ID),
		"content":   str(v.Content),
		"authorId":  num(v.AuthorID),
		"postId":    num(v.PostID),
		"username":  str(v.Username),
		"createdAt": ts(v.CreatedAt),
	}}
}

// ToComments wraps comments under "comments".
func ToComments(vs []model.CommentView) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"comments": list(vs, ToComment)}}
}

// --- client -> server ---

// Str returns the string field key, or "" if it is absent or not a string.
func Str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// Int returns the integer field key. JSON numbers and decimal strings are accepted.
func Int(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, errs.Validation(fmt.Errorf("%s: cannot be blank", key))
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, errs.Validation(fmt.Errorf("%s: must be an integer", key))
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, errs.Validation(fmt.Errorf("%s: must be an integer", key))
		}
		return n, nil
	default:
		return 0, errs.Validation(fmt.Errorf("%s: must be an integer", key))
	}
}

// Request builds a request message from plain Go values.
func Request(fields map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(fields)
}
