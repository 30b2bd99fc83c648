package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	sc "github.com/dmitrijs2005/liveon/internal/server/config"
)

type fakeS3 struct {
	headBucketErr   error
	createBucketIn  *s3.CreateBucketInput
	createBucketErr error

	putIn  *s3.PutObjectInput
	putOut *s3.PutObjectOutput
	putErr error

	getOut *s3.GetObjectOutput
	getErr error

	headErr error
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headBucketErr
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createBucketIn = in
	return &s3.CreateBucketOutput{}, f.createBucketErr
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	return f.putOut, f.putErr
}

func (f *fakeS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.getOut, f.getErr
}

func (f *fakeS3) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, f.headErr
}

func newFakeStore(api s3API) *S3Store {
	return &S3Store{api: api, bucket: "backup", region: "eu-west-1"}
}

func Test_NewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	cfg := &sc.Config{}
	cfg.LoadDefaults()

	st, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if st.bucket != "backup" {
		t.Fatalf("bucket = %q", st.bucket)
	}
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000/" {
		t.Fatalf("BaseEndpoint not applied: %v", opts.BaseEndpoint)
	}
	if !opts.UsePathStyle {
		t.Fatalf("path style not applied")
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}
	if _, err := NewS3Store(context.Background(), cfg); err == nil {
		t.Fatalf("expected error from config load")
	}
}

func TestS3Store_PutConditions(t *testing.T) {
	t.Parallel()

	f := &fakeS3{putOut: &s3.PutObjectOutput{ETag: aws.String(`"e2"`)}}
	st := newFakeStore(f)

	etag, err := st.Put(context.Background(), "u/status.json", []byte("{}"), PutOptions{
		ContentType: "application/json",
		IfMatch:     `"e1"`,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if etag != `"e2"` {
		t.Fatalf("etag = %q", etag)
	}
	if aws.ToString(f.putIn.IfMatch) != `"e1"` || f.putIn.IfNoneMatch != nil {
		t.Fatalf("unexpected conditions: %+v", f.putIn)
	}
	if aws.ToString(f.putIn.ContentType) != "application/json" {
		t.Fatalf("content type not set")
	}

	_, err = st.Put(context.Background(), "u/status.json", []byte("{}"), PutOptions{IfNoneMatch: true})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if aws.ToString(f.putIn.IfNoneMatch) != "*" {
		t.Fatalf("IfNoneMatch not set")
	}
}

func TestS3Store_PutPreconditionFailed(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"PreconditionFailed", "ConditionalRequestConflict"} {
		f := &fakeS3{putErr: &smithy.GenericAPIError{Code: code, Message: "nope"}}
		_, err := newFakeStore(f).Put(context.Background(), "k", nil, PutOptions{IfMatch: `"x"`})
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("%s: expected ErrPreconditionFailed, got %v", code, err)
		}
	}
}

func TestS3Store_Get(t *testing.T) {
	t.Parallel()

	f := &fakeS3{getOut: &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(`{"running":true}`)),
		ETag: aws.String(`"abc"`),
	}}
	data, etag, err := newFakeStore(f).Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"running":true}` || etag != `"abc"` {
		t.Fatalf("got %q %q", data, etag)
	}

	f = &fakeS3{getErr: &types.NoSuchKey{}}
	if _, _, err := newFakeStore(f).Get(context.Background(), "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestS3Store_Exists(t *testing.T) {
	t.Parallel()

	ok, err := newFakeStore(&fakeS3{}).Exists(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("expected present, got %v %v", ok, err)
	}

	ok, err = newFakeStore(&fakeS3{headErr: &types.NotFound{}}).Exists(context.Background(), "k")
	if err != nil || ok {
		t.Fatalf("expected absent, got %v %v", ok, err)
	}

	_, err = newFakeStore(&fakeS3{headErr: errors.New("net down")}).Exists(context.Background(), "k")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Parallel()

	f := &fakeS3{}
	if err := newFakeStore(f).EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if f.createBucketIn != nil {
		t.Fatalf("bucket created although it exists")
	}

	f = &fakeS3{headBucketErr: errors.New("404")}
	if err := newFakeStore(f).EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if f.createBucketIn == nil || f.createBucketIn.CreateBucketConfiguration == nil {
		t.Fatalf("expected create with location constraint")
	}

	f = &fakeS3{headBucketErr: errors.New("404"), createBucketErr: &types.BucketAlreadyOwnedByYou{}}
	if err := newFakeStore(f).EnsureBucket(context.Background()); err != nil {
		t.Fatalf("already-owned must be treated as success: %v", err)
	}

	f = &fakeS3{headBucketErr: errors.New("404"), createBucketErr: errors.New("denied")}
	if err := newFakeStore(f).EnsureBucket(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestS3Store_PresignGet(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	var gotKey string
	var gotTTL time.Duration
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey = aws.ToString(in.Key)
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		gotTTL = po.Expires
		return &v4.PresignedHTTPRequest{URL: "https://s3/" + gotKey, Method: http.MethodGet}, nil
	}

	u, err := newFakeStore(&fakeS3{}).PresignGet(context.Background(), "u/backup_r/summary.json", 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if u != "https://s3/u/backup_r/summary.json" || gotTTL != 15*time.Minute {
		t.Fatalf("got %q ttl=%v", u, gotTTL)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign fail")
	}
	if _, err := newFakeStore(&fakeS3{}).PresignGet(context.Background(), "k", time.Minute); err == nil {
		t.Fatalf("expected error")
	}
}
