package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

func TestInlineSource(t *testing.T) {
	rows, err := NewInlineSource(`[{"Id": 42, "Age": 33}, {"Id": 7, "Name": "Ada"}]`).Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Id"] != json.Number("42") {
		t.Errorf("expected Id to stay an exact number, got %#v", rows[0]["Id"])
	}
	if rows[1]["Name"] != "Ada" {
		t.Errorf("expected column names to keep their case, got %v", rows[1])
	}

	out, err := model.SerializeRows(rows)
	if err != nil {
		t.Fatalf("SerializeRows failed: %v", err)
	}
	if !strings.Contains(string(out), `"Id":42`) {
		t.Errorf("expected numeric Id in payload, got %s", out)
	}
}

func TestInlineSourceEmptyAndInvalid(t *testing.T) {
	rows, err := NewInlineSource("  ").Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", rows)
	}

	_, err = NewInlineSource(`[{"Id": }]`).Read(context.Background())
	if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
		t.Errorf("expected row source error, got %v", err)
	}

	rows, err = NewInlineSource(`[{"Id": 1}] {"Id": 2}`).Read(context.Background())
	if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
		t.Errorf("expected trailing data to be rejected, got %d rows and err=%v", len(rows), err)
	}
	if err != nil && !strings.Contains(err.Error(), "unexpected trailing data") {
		t.Errorf("expected trailing data message, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "array", content: `[{"Id": 1}, {"Id": 2}, {"Id": 3}]`, want: 3},
		{name: "json lines", content: "{\"Id\": 1}\n{\"Id\": 2}\n", want: 2},
		{name: "empty array", content: `[]`, want: 0},
		{name: "not rows", content: `"hello"`, wantErr: true},
		{name: "array with trailing object", content: `[{"Id": 1}] {"Id": 2}`, wantErr: true},
		{name: "array with trailing garbage", content: `[{"Id": 1}] oops`, wantErr: true},
		{name: "null element", content: `[{"Id": 1}, null]`, wantErr: true},
		{name: "null line", content: "{\"Id\": 1}\nnull\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			rows, err := NewFileSource(path).Read(context.Background())
			if tt.wantErr {
				if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
					t.Errorf("expected row source error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("expected %d rows, got %d", tt.want, len(rows))
			}
		})
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Read(context.Background())
	if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
		t.Errorf("expected row source error, got %v", err)
	}
}

type fakeObjectGetter struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (f *fakeObjectGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Source(t *testing.T) {
	getter := &fakeObjectGetter{body: `[{"Id": 1, "Age": 20}]`}
	rows, err := NewS3SourceWithClient(getter, "exports", "rows/ages.json").Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
	if aws.ToString(getter.input.Bucket) != "exports" || aws.ToString(getter.input.Key) != "rows/ages.json" {
		t.Errorf("unexpected object requested: %s/%s", aws.ToString(getter.input.Bucket), aws.ToString(getter.input.Key))
	}
}

func TestS3SourceError(t *testing.T) {
	getter := &fakeObjectGetter{err: errors.New("NoSuchKey")}
	_, err := NewS3SourceWithClient(getter, "exports", "missing.json").Read(context.Background())
	if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
		t.Errorf("expected row source error, got %v", err)
	}
}

func TestNewS3SourceRequiresObject(t *testing.T) {
	_, err := NewS3Source(context.Background(), config.S3Config{Region: "us-east-1"})
	if !utils.IsErrorType(err, utils.ErrCodeInvalidConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestMySQLSourceConnectionFailure(t *testing.T) {
	cfg := &config.Config{Rows: config.RowsConfig{Source: config.SourceMySQL, Query: "SELECT 1"}}
	src := NewMySQLSource(cfg)
	src.open = func(*config.Config) (*gorm.DB, error) {
		return nil, errors.New("connection refused")
	}

	_, err := src.Read(context.Background())
	if !utils.IsErrorType(err, utils.ErrCodeRowSourceFailed) {
		t.Errorf("expected row source error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		source  string
		want    string
		wantErr bool
	}{
		{source: config.SourceInline, want: config.SourceInline},
		{source: config.SourceFile, want: config.SourceFile},
		{source: config.SourceMySQL, want: config.SourceMySQL},
		{source: "ftp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			cfg := &config.Config{Rows: config.RowsConfig{Source: tt.source}}
			src, err := New(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if src.Name() != tt.want {
				t.Errorf("expected %s source, got %s", tt.want, src.Name())
			}
		})
	}
}
