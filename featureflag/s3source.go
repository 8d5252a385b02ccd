package featureflag

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxFlagsObjectSize - верхняя граница размера объекта с флагами
const maxFlagsObjectSize = 1 << 20

// S3Config содержит параметры объекта с флагами в S3-совместимом хранилище
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`   // Кастомный эндпоинт (MinIO и т.п.), пусто - AWS
	Region    string `yaml:"region"`     // Регион (например, us-west-2)
	Bucket    string `yaml:"bucket"`     // Бакет с конфигурацией
	Key       string `yaml:"key"`        // Ключ объекта (например, flags/hub.yaml)
	AccessKey string `yaml:"access_key"` // Статические ключи; пусто - цепочка по умолчанию
	SecretKey string `yaml:"secret_key"`
}

// Validate проверяет корректность конфигурации
func (c *S3Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if c.Key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	return nil
}

// ObjectGetter - часть S3 API, нужная источнику
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source читает флаги из объекта в S3
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source создает S3 клиента по конфигурации
func NewS3Source(ctx context.Context, cfg *S3Config) (*S3Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 flag source config: %w", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3SourceWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3SourceWithClient создает источник с готовым клиентом
func NewS3SourceWithClient(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Load(ctx context.Context) (Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxFlagsObjectSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return Parse(data)
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}
