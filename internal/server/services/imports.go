package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	sc "github.com/dmitrijs2005/shelfkeeper/internal/server/config"
)

// importChunkRows is how many data rows go into each staged part.
const importChunkRows = 20

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the slice of the S3 API the importer needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the server config. Static credentials
// are used when configured, otherwise the default AWS credential chain.
// A custom base endpoint (MinIO) switches on path-style addressing.
func NewS3Client(ctx context.Context, cfg *sc.Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ImportService stages StoryGraph CSV exports in object storage, split into
// parts small enough for downstream processing.
type ImportService struct {
	client    ObjectPutter
	bucket    string
	chunkRows int
	logger    logging.Logger
}

func NewImportService(client ObjectPutter, bucket string, logger logging.Logger) *ImportService {
	return &ImportService{
		client:    client,
		bucket:    bucket,
		chunkRows: importChunkRows,
		logger:    logger.With("module", "import"),
	}
}

// ImportStoryGraph splits the CSV read from r into parts of at most 20 data
// rows, each repeating the header, and uploads them as
// storygraph/{userID}_part{n}.csv with n starting at 1. It returns the keys
// written. A file without a header row is a validation error.
func (s *ImportService) ImportStoryGraph(ctx context.Context, userID int64, r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: invalid CSV file: no headers found", common.ErrorValidation)
		}
		return nil, fmt.Errorf("%w: invalid CSV file: %w", common.ErrorValidation, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid CSV file: %w", common.ErrorValidation, err)
	}

	keys := make([]string, 0, (len(rows)+s.chunkRows-1)/s.chunkRows)
	for start, part := 0, 1; start < len(rows); start, part = start+s.chunkRows, part+1 {
		end := min(start+s.chunkRows, len(rows))

		body, err := encodeCSV(header, rows[start:end])
		if err != nil {
			return keys, err
		}

		key := fmt.Sprintf("storygraph/%d_part%d.csv", userID, part)
		if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("text/csv"),
		}); err != nil {
			s.logger.Error(ctx, "error uploading import part", "key", key, "error", err)
			return keys, fmt.Errorf("error uploading %s: %w", key, err)
		}

		s.logger.Info(ctx, "uploaded import part", "key", key, "rows", end-start)
		keys = append(keys, key)
	}

	return keys, nil
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
