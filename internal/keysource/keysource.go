// Package keysource loads the signing key material once at startup. The key
// may come from an environment variable, a local file, an S3 object or an SSM
// SecureString parameter. Exactly one source must be configured.
package keysource

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	ErrNoSource        = errors.New("no signing key configured")
	ErrMultipleSources = errors.New("more than one signing key source configured")
)

// maxKeyFileSize bounds what is read from a file or S3 object.
const maxKeyFileSize = 4096

// Source names where the key lives. File accepts a local path or an
// s3://bucket/key URI.
type Source struct {
	Hex          string
	File         string
	SSMParameter string
}

// Describe returns a log-safe description of the configured source.
func (s Source) Describe() string {
	switch {
	case s.Hex != "":
		return "env"
	case s.SSMParameter != "":
		return "ssm:" + s.SSMParameter
	case s.File != "":
		return "file:" + s.File
	default:
		return "none"
	}
}

// NeedsAWS reports whether loading the source requires AWS clients.
func (s Source) NeedsAWS() bool {
	return s.SSMParameter != "" || strings.HasPrefix(s.File, "s3://")
}

func (s Source) validate() error {
	set := lo.Compact([]string{s.Hex, s.File, s.SSMParameter})
	switch len(set) {
	case 0:
		return ErrNoSource
	case 1:
		return nil
	default:
		return ErrMultipleSources
	}
}

// Loader resolves a Source into raw key bytes. The AWS clients are only
// needed for SSM and S3 sources.
type Loader struct {
	SSM ssmiface.SSMAPI
	S3  s3iface.S3API
}

// NewAWSLoader builds a Loader backed by real AWS clients. Credentials follow
// the SDK's default chain.
func NewAWSLoader(region string) (*Loader, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return &Loader{SSM: ssm.New(sess), S3: s3.New(sess)}, nil
}

// Load returns the decoded key bytes.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}

	var (
		encoded string
		err     error
	)
	switch {
	case src.Hex != "":
		encoded = src.Hex
	case src.SSMParameter != "":
		encoded, err = l.fromSSM(ctx, src.SSMParameter)
	case strings.HasPrefix(src.File, "s3://"):
		encoded, err = l.fromS3(ctx, src.File)
	default:
		encoded, err = fromFile(src.File)
	}
	if err != nil {
		return nil, err
	}
	return DecodeHex(encoded)
}

// DecodeHex decodes a hex key with or without a 0x prefix, ignoring
// surrounding whitespace.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("signing key is empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	key, err := hexutil.Decode(s)
	if err != nil {
		// The value itself is never included in the error.
		return nil, errors.New("signing key is not valid hex")
	}
	return key, nil
}

func (l *Loader) fromSSM(ctx context.Context, name string) (string, error) {
	if l == nil || l.SSM == nil {
		return "", errors.New("ssm client not configured")
	}
	out, err := l.SSM.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get ssm parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.Errorf("ssm parameter %s has no value", name)
	}
	return aws.StringValue(out.Parameter.Value), nil
}

func (l *Loader) fromS3(ctx context.Context, uri string) (string, error) {
	if l == nil || l.S3 == nil {
		return "", errors.New("s3 client not configured")
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" || strings.TrimPrefix(u.Path, "/") == "" {
		return "", errors.Errorf("invalid s3 key location %q", uri)
	}

	out, err := l.S3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get s3 object %s", uri)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxKeyFileSize))
	if err != nil {
		return "", errors.Wrapf(err, "read s3 object %s", uri)
	}
	return string(data), nil
}

func fromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open key file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return "", errors.Wrap(err, "read key file")
	}
	return string(data), nil
}
