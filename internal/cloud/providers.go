package cloud

import (
	"fmt"
	"strings"
)

// Standard AWS S3 regional endpoints.
var awsEndpoints = map[string]string{
	"us-east-1":      "s3.amazonaws.com",
	"us-east-2":      "s3.us-east-2.amazonaws.com",
	"us-west-1":      "s3.us-west-1.amazonaws.com",
	"us-west-2":      "s3.us-west-2.amazonaws.com",
	"eu-west-1":      "s3.eu-west-1.amazonaws.com",
	"eu-west-2":      "s3.eu-west-2.amazonaws.com",
	"eu-central-1":   "s3.eu-central-1.amazonaws.com",
	"eu-north-1":     "s3.eu-north-1.amazonaws.com",
	"ap-northeast-1": "s3.ap-northeast-1.amazonaws.com",
	"ap-southeast-1": "s3.ap-southeast-1.amazonaws.com",
	"ap-southeast-2": "s3.ap-southeast-2.amazonaws.com",
	"ap-south-1":     "s3.ap-south-1.amazonaws.com",
	"ca-central-1":   "s3.ca-central-1.amazonaws.com",
	"sa-east-1":      "s3.sa-east-1.amazonaws.com",
}

// AWSConfig holds AWS S3-specific configuration.
type AWSConfig struct {
	BucketName string
	AccessKey  string
	SecretKey  string
	Region     string // default us-east-1
}

// NewAWSClient creates an S3 client for AWS S3. AWS uses virtual-host
// style URLs (bucket.s3.amazonaws.com).
func NewAWSClient(config *AWSConfig) *S3Client {
	region := config.Region
	if region == "" {
		region = "us-east-1"
	}

	endpoint, ok := awsEndpoints[region]
	if !ok {
		endpoint = "s3.amazonaws.com"
	}

	return NewS3Client(&S3Config{
		Endpoint:       endpoint,
		BucketName:     config.BucketName,
		AccessKey:      config.AccessKey,
		SecretKey:      config.SecretKey,
		Region:         region,
		ForcePathStyle: false,
	})
}

// IsSupportedAWSRegion reports whether region has a known S3 endpoint.
func IsSupportedAWSRegion(region string) bool {
	_, ok := awsEndpoints[region]
	return ok
}

// MinIOConfig holds MinIO-specific configuration.
type MinIOConfig struct {
	Endpoint   string // e.g. "localhost:9000" or "https://minio.example.com"
	BucketName string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

// NewMinIOClient creates an S3 client for a MinIO server. MinIO
// requires path-style URLs (endpoint/bucket/key).
func NewMinIOClient(config *MinIOConfig) *S3Client {
	endpoint := config.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if config.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	return NewS3Client(&S3Config{
		Endpoint:       endpoint,
		BucketName:     config.BucketName,
		AccessKey:      config.AccessKey,
		SecretKey:      config.SecretKey,
		Region:         "us-east-1", // MinIO ignores regions, SigV4 needs one
		ForcePathStyle: true,
	})
}

// R2Config holds Cloudflare R2-specific configuration.
type R2Config struct {
	AccountID  string
	BucketName string
	AccessKey  string
	SecretKey  string
}

// NewR2Client creates an S3 client for Cloudflare R2. The endpoint is
// account-scoped: <accountid>.r2.cloudflarestorage.com.
func NewR2Client(config *R2Config) (*S3Client, error) {
	if config.AccountID == "" {
		return nil, fmt.Errorf("r2 account id is required")
	}

	return NewS3Client(&S3Config{
		Endpoint:       fmt.Sprintf("%s.r2.cloudflarestorage.com", config.AccountID),
		BucketName:     config.BucketName,
		AccessKey:      config.AccessKey,
		SecretKey:      config.SecretKey,
		Region:         "auto",
		ForcePathStyle: false,
	}), nil
}

// NewClientFromEndpoint builds a generic S3 client from a raw endpoint,
// the form stored in sync credentials.
func NewClientFromEndpoint(endpoint, bucket, accessKey, secretKey, region string, forcePathStyle bool) *S3Client {
	if region == "" {
		region = "us-east-1"
	}
	return NewS3Client(&S3Config{
		Endpoint:       strings.TrimSuffix(endpoint, "/"),
		BucketName:     bucket,
		AccessKey:      accessKey,
		SecretKey:      secretKey,
		Region:         region,
		ForcePathStyle: forcePathStyle,
	})
}
