package internal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ObjectStore is where source images come from and exported variants go to.
type ObjectStore interface {
	Download(ctx context.Context, region, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, region, bucket, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, region, bucket, key string) error
}

func NewS3Store(log *StdLog) *S3Store {
	return &S3Store{
		sessions: map[string]*session.Session{},
		log:      log,
	}
}

type S3Store struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	log      *StdLog
}

func (s *S3Store) session(region string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[region]; ok {
		return sess, nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.sessions[region] = sess
	return sess, nil
}

func (s *S3Store) Download(ctx context.Context, region, bucket, key string) ([]byte, error) {
	sess, err := s.session(region)
	if err != nil {
		return nil, err
	}
	downloader := s3manager.NewDownloader(sess)

	buf := aws.NewWriteAtBuffer([]byte{})
	_, err = downloader.DownloadWithContext(ctx, buf,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	s.log.Debug("Receive file from S3 %s/%s", bucket, key)
	return buf.Bytes(), nil
}

func (s *S3Store) Upload(ctx context.Context, region, bucket, key, contentType string, body io.Reader) error {
	sess, err := s.session(region)
	if err != nil {
		return err
	}
	uploader := s3manager.NewUploader(sess)

	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	s.log.Debug("Put file to S3 %s/%s", bucket, key)
	return nil
}

func (s *S3Store) Delete(ctx context.Context, region, bucket, key string) error {
	sess, err := s.session(region)
	if err != nil {
		return err
	}
	_, err = s3.New(sess).DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.log.Debug("Delete file from S3 %s/%s", bucket, key)
	return nil
}
