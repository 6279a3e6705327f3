package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"studyloader/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests("incoming/brca_tcga/")
	if s.Driver() != core.DriverS3 {
		t.Fatalf("driver mismatch")
	}
	info, err := s.Put(ctx, "meta_study.txt", strings.NewReader("name: BRCA"), "text/plain")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "meta_study.txt" || info.Size != int64(len("name: BRCA")) || info.ETag != "etag123" {
		t.Fatalf("unexpected info %+v", info)
	}
	_, rc, err := s.Get(ctx, "meta_study.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "name: BRCA" {
		t.Fatalf("unexpected body %q", b)
	}
	if _, err := s.Head(ctx, "meta_CNA.txt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing: expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "meta_CNA.txt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: expected ErrNotFound, got %v", err)
	}
	list, err := s.List(ctx, "")
	if err != nil || len(list) != 1 || list[0].Key != "meta_study.txt" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
}

func TestObjectKeysCarryPrefix(t *testing.T) {
	s := &Store{prefix: "incoming/brca"}
	if got := s.objectKey("data_CNA.txt"); got != "incoming/brca/data_CNA.txt" {
		t.Fatalf("objectKey: %s", got)
	}
	if got := s.stagingKey("incoming/brca/data_CNA.txt"); got != "data_CNA.txt" {
		t.Fatalf("stagingKey: %s", got)
	}
	bare := &Store{}
	if bare.objectKey("x") != "x" || bare.stagingKey("x") != "x" {
		t.Fatalf("bare store must not rewrite keys")
	}
}

func TestMapErrRecognisesMissingObjects(t *testing.T) {
	cases := []error{
		&types.NoSuchKey{},
		&types.NotFound{},
		fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}),
	}
	for _, in := range cases {
		if err := mapErr("k", in); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("%T not mapped: %v", in, err)
		}
	}
	other := errors.New("access denied")
	if err := mapErr("k", other); err != other {
		t.Fatalf("unrelated errors must pass through, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}
