package pinvault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	// Query parameter carrying the Content-Disposition the blob must be
	// served with, named as S3 names it.
	ResponseContentDispositionParam = "response-content-disposition"
	// Query parameter carrying the media type recorded at upload.
	ResponseContentTypeParam = "response-content-type"
)

// SecretStore resolves the secret key for an access key.
type SecretStore interface {
	Lookup(accessKey string) (string, error)
}

// Signer issues AWS Signature V4 presigned GET URLs for blobs served by the
// vault itself. Only the host header is signed and the payload is never
// hashed, matching what S3 presigned URLs carry.
type Signer struct {
	Region    string
	Service   string
	AccessKey string
	SecretKey string

	now func() time.Time
}

func NewSigner(region, service, accessKey, secretKey string) *Signer {
	return &Signer{
		Region:    region,
		Service:   service,
		AccessKey: accessKey,
		SecretKey: secretKey,
		now:       time.Now,
	}
}

// Presign returns u with signature query parameters added. Parameters already
// present on u (such as response-content-disposition) are covered by the
// signature.
//
// Example:
//
//	signer := pinvault.NewSigner("us-east-1", "s3", "AKIA...", "secret")
//	u, _ := url.Parse("https://vault.example.com/blobs/uploads/abc.txt")
//	signed, err := signer.Presign(http.MethodGet, u, time.Hour)
func (s *Signer) Presign(method string, u *url.URL, expires time.Duration) (string, error) {
	seconds := int(expires / time.Second)
	if seconds <= 0 || seconds > MaxExpiresSeconds {
		return "", fmt.Errorf("presign: %w: expiry must be between 1s and %ds", ErrInvalidArgument, MaxExpiresSeconds)
	}

	if u.Host == "" {
		return "", fmt.Errorf("presign: %w: url has no host", ErrInvalidArgument)
	}

	requestTime := s.now().UTC()
	dateStamp := requestTime.Format(DateFormat)

	query := u.Query()
	query.Set("X-Amz-Algorithm", SignatureAlgorithm)
	query.Set("X-Amz-Credential", fmt.Sprintf("%s/%s/%s/%s/aws4_request", s.AccessKey, dateStamp, s.Region, s.Service))
	query.Set("X-Amz-Date", requestTime.Format(DateTimeFormat))
	query.Set("X-Amz-Expires", strconv.Itoa(seconds))
	query.Set("X-Amz-SignedHeaders", "host")

	headers := http.Header{}
	headers.Set("Host", u.Host)

	signature := calculateSignature(
		s.SecretKey,
		method,
		u.EscapedPath(),
		query,
		headers,
		requestTime,
		dateStamp,
		s.Region,
		s.Service,
		"host",
	)
	query.Set("X-Amz-Signature", signature)

	signed := *u
	signed.RawQuery = query.Encode()
	return signed.String(), nil
}

// SignatureVerifier verifies AWS Signature V4 presigned URLs.
type SignatureVerifier struct {
	Region  string
	Service string
	Store   SecretStore

	now func() time.Time
}

// NewSignatureVerifier creates a new signature verifier.
//
// Parameters:
//   - region: AWS region (e.g., "us-east-1")
//   - service: AWS service name (e.g., "s3")
//   - store: Resolves the secret key for the access key named in a URL
func NewSignatureVerifier(region, service string, store SecretStore) *SignatureVerifier {
	return &SignatureVerifier{
		Region:  region,
		Service: service,
		Store:   store,
		now:     time.Now,
	}
}

// Verify verifies a request made with an AWS Signature V4 presigned URL.
//
// Required query parameters:
//   - X-Amz-Algorithm: Must be "AWS4-HMAC-SHA256"
//   - X-Amz-Credential: Format "access_key/date/region/service/aws4_request"
//   - X-Amz-Date: ISO8601 timestamp (YYYYMMDDTHHMMSSZ)
//   - X-Amz-Expires: Validity duration in seconds (1-604800)
//   - X-Amz-SignedHeaders: Semicolon-separated list of signed headers
//   - X-Amz-Signature: Hex-encoded HMAC-SHA256 signature
//
// Every failure wraps ErrUnauthorized.
func (v *SignatureVerifier) Verify(r *http.Request) error {
	query := r.URL.Query()

	params, err := v.extractParams(query)
	if err != nil {
		return err
	}

	if err := v.validateParams(params); err != nil {
		return err
	}

	secretKey, err := v.Store.Lookup(params.accessKey)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %w", err, ErrUnauthorized)
	}

	// net/http moves Host out of the header map.
	headers := r.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Host", r.Host)

	expectedSignature := calculateSignature(
		secretKey,
		r.Method,
		r.URL.EscapedPath(),
		query,
		headers,
		params.requestTime,
		params.dateStamp,
		params.region,
		params.service,
		params.signedHeaders,
	)

	if !hmac.Equal([]byte(expectedSignature), []byte(params.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

type signatureParams struct {
	algorithm     string
	accessKey     string
	dateStamp     string
	region        string
	service       string
	requestTime   time.Time
	expires       int
	signedHeaders string
	signature     string
}

func (v *SignatureVerifier) extractParams(query url.Values) (*signatureParams, error) {
	amzAlgorithm := query.Get("X-Amz-Algorithm")
	amzCredential := query.Get("X-Amz-Credential")
	amzDate := query.Get("X-Amz-Date")
	amzExpires := query.Get("X-Amz-Expires")
	amzSignedHeaders := query.Get("X-Amz-SignedHeaders")
	amzSignature := query.Get("X-Amz-Signature")

	if amzAlgorithm == "" || amzCredential == "" || amzDate == "" ||
		amzExpires == "" || amzSignedHeaders == "" || amzSignature == "" {
		return nil, fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	requestTime, err := time.Parse(DateTimeFormat, amzDate)
	if err != nil {
		return nil, fmt.Errorf("invalid X-Amz-Date format: %w", ErrUnauthorized)
	}

	expires, err := strconv.Atoi(amzExpires)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}

	credParts := strings.Split(amzCredential, "/")
	if len(credParts) != 5 {
		return nil, fmt.Errorf("invalid X-Amz-Credential format: %w", ErrUnauthorized)
	}

	if credParts[4] != "aws4_request" {
		return nil, fmt.Errorf("invalid credential terminator: expected aws4_request: %w", ErrUnauthorized)
	}

	return &signatureParams{
		algorithm:     amzAlgorithm,
		accessKey:     credParts[0],
		dateStamp:     credParts[1],
		region:        credParts[2],
		service:       credParts[3],
		requestTime:   requestTime,
		expires:       expires,
		signedHeaders: amzSignedHeaders,
		signature:     amzSignature,
	}, nil
}

func (v *SignatureVerifier) validateParams(params *signatureParams) error {
	if params.algorithm != SignatureAlgorithm {
		return fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, params.algorithm, ErrUnauthorized)
	}

	if v.now().After(params.requestTime.Add(time.Duration(params.expires) * time.Second)) {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	expectedDate := params.requestTime.Format(DateFormat)
	if params.dateStamp != expectedDate {
		return fmt.Errorf("credential date mismatch: %w", ErrUnauthorized)
	}

	if params.region != v.Region {
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, params.region, ErrUnauthorized)
	}

	if params.service != v.Service {
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, params.service, ErrUnauthorized)
	}

	return nil
}

func calculateSignature(
	secretKey, method, path string,
	query url.Values,
	headers http.Header,
	requestTime time.Time,
	dateStamp, region, service, signedHeaders string,
) string {
	canonicalRequest := buildCanonicalRequest(method, path, query, headers, signedHeaders)

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
	stringToSign := buildStringToSign(requestTime, credentialScope, canonicalRequest)

	signingKey := deriveSigningKey(secretKey, dateStamp, region, service)

	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func buildCanonicalRequest(method, path string, query url.Values, headers http.Header, signedHeaders string) string {
	return strings.Join([]string{
		method,
		path,
		buildCanonicalQueryString(query),
		buildCanonicalHeaders(headers, signedHeaders),
		signedHeaders,
		"UNSIGNED-PAYLOAD",
	}, "\n")
}

// buildCanonicalHeaders formats the signed headers, sorted, as "name:value\n".
func buildCanonicalHeaders(headers http.Header, signedHeaders string) string {
	headerNames := strings.Split(signedHeaders, ";")
	sort.Strings(headerNames)

	var result strings.Builder
	for _, name := range headerNames {
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(strings.TrimSpace(headers.Get(name)))
		result.WriteString("\n")
	}
	return result.String()
}

func buildCanonicalQueryString(query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	return params.Encode()
}

func buildStringToSign(requestTime time.Time, credentialScope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		credentialScope,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
