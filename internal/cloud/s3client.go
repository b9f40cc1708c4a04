package cloud

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/kbradley/liftlog/internal/errors"
)

// S3Config holds S3 connection configuration.
type S3Config struct {
	Endpoint       string // host or scheme://host
	BucketName     string
	AccessKey      string
	SecretKey      string
	Region         string
	ForcePathStyle bool // path-style URLs (minio, localstack)
}

// S3Client implements ObjectStore against any S3-compatible service.
type S3Client struct {
	config     *S3Config
	httpClient *http.Client
}

// listBucketResult is the S3 ListObjectsV2 response.
type listBucketResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	IsTruncated           bool     `xml:"IsTruncated"`
	NextContinuationToken string   `xml:"NextContinuationToken"`
	Contents              []struct {
		Key          string `xml:"Key"`
		LastModified string `xml:"LastModified"`
		Size         int64  `xml:"Size"`
	} `xml:"Contents"`
}

// NewS3Client creates an S3Client for the given configuration.
func NewS3Client(config *S3Config) *S3Client {
	return &S3Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Upload writes data to the bucket under key.
func (c *S3Client) Upload(ctx context.Context, key string, data []byte) error {
	req, err := c.newRequest(ctx, http.MethodPut, key, "", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteStatusErr("upload", key, resp)
	}
	return nil
}

// Download returns the object at key.
func (c *S3Client) Download(ctx context.Context, key string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, key, "", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemote, "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.New(apperrors.ErrNotFound, "object not found: "+key)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteStatusErr("download", key, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemote, "failed to read response body", err)
	}
	return data, nil
}

// Delete removes the object at key. S3 DELETE is idempotent; a missing
// object is not an error.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, key, "", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, "delete request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	}
	return remoteStatusErr("delete", key, resp)
}

// List returns all keys under prefix, following continuation tokens.
func (c *S3Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""

	for {
		// Keys sorted for the canonical request.
		query := "list-type=2&prefix=" + url.QueryEscape(prefix)
		if token != "" {
			query = "continuation-token=" + url.QueryEscape(token) + "&" + query
		}

		req, err := c.newRequest(ctx, http.MethodGet, "", query, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrRemote, "list request failed", err)
		}

		var result listBucketResult
		if resp.StatusCode != http.StatusOK {
			err := remoteStatusErr("list", prefix, resp)
			resp.Body.Close()
			return nil, err
		}
		if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, apperrors.Wrap(apperrors.ErrRemote, "failed to parse list response", err)
		}
		resp.Body.Close()

		for _, content := range result.Contents {
			keys = append(keys, content.Key)
		}

		if !result.IsTruncated || result.NextContinuationToken == "" {
			return keys, nil
		}
		token = result.NextContinuationToken
	}
}

// TestConnection verifies credentials and reachability by listing the
// bucket root.
func (c *S3Client) TestConnection(ctx context.Context) error {
	_, err := c.List(ctx, "")
	return err
}

func remoteStatusErr(op, key string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return apperrors.New(apperrors.ErrRemote,
		fmt.Sprintf("%s %q failed with status %d: %s", op, key, resp.StatusCode, string(body)))
}

// endpointParts splits the configured endpoint into scheme and host,
// defaulting to https when no scheme is given.
func (c *S3Client) endpointParts() (scheme, host string) {
	endpoint := strings.TrimSuffix(c.config.Endpoint, "/")
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "https", strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "http", strings.TrimPrefix(endpoint, "http://")
	}
	return "https", endpoint
}

// newRequest builds a signed request for one object or bucket operation.
// An empty key with a query addresses the bucket itself.
func (c *S3Client) newRequest(ctx context.Context, method, key, query string, body io.Reader) (*http.Request, error) {
	scheme, host := c.endpointParts()

	var reqHost, path string
	if c.config.ForcePathStyle {
		reqHost = host
		path = "/" + c.config.BucketName
		if key != "" {
			path += "/" + key
		}
	} else {
		reqHost = c.config.BucketName + "." + host
		path = "/"
		if key != "" {
			path += key
		}
	}

	urlStr := scheme + "://" + reqHost + path
	if query != "" {
		urlStr += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemote, "failed to build request", err)
	}

	timestamp := time.Now().UTC()
	amzDate := timestamp.Format("20060102T150405Z")

	req.Host = reqHost
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", "UNSIGNED-PAYLOAD")
	req.Header.Set("Authorization", c.authorization(method, reqHost, path, query, amzDate))

	return req, nil
}

// authorization computes the AWS Signature V4 authorization header with
// an unsigned payload. query must already be escaped with its keys in
// sorted order; it is signed as given.
func (c *S3Client) authorization(method, host, path, query, amzDate string) string {
	dateStamp := amzDate[:8]
	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, c.config.Region)

	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-date:%s\n", host, amzDate)
	signedHeaders := "host;x-amz-date"
	payloadHash := "UNSIGNED-PAYLOAD"

	canonicalRequest := strings.Join([]string{
		method, path, query, canonicalHeaders, signedHeaders, payloadHash,
	}, "\n")

	algorithm := "AWS4-HMAC-SHA256"
	stringToSign := strings.Join([]string{
		algorithm, amzDate, scope, hex.EncodeToString(hashSHA256([]byte(canonicalRequest))),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+c.config.SecretKey), dateStamp)
	kRegion := hmacSHA256(kDate, c.config.Region)
	kService := hmacSHA256(kRegion, "s3")
	kSigning := hmacSHA256(kService, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, stringToSign))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, c.config.AccessKey, scope, signedHeaders, signature)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashSHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
