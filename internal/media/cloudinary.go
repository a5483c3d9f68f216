// Package media uploads videos and images to a Cloudinary-compatible
// unsigned upload endpoint.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/d60-Lab/chatsync/config"
)

const (
	ResourceImage = "image"
	ResourceVideo = "video"
)

// Asset is the stored file as reported by the media host.
type Asset struct {
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
}

// Uploader stores a file and returns where it lives.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, resourceType string) (*Asset, error)
}

type CloudinaryClient struct {
	baseURL      string
	cloudName    string
	uploadPreset string
	folder       string
	httpClient   *http.Client
}

func NewCloudinaryClient(cfg config.MediaConfig) *CloudinaryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CloudinaryClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		cloudName:    cfg.CloudName,
		uploadPreset: cfg.UploadPreset,
		folder:       cfg.Folder,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *CloudinaryClient) Upload(ctx context.Context, r io.Reader, filename, resourceType string) (*Asset, error) {
	if resourceType != ResourceImage && resourceType != ResourceVideo {
		return nil, errors.Errorf("unsupported resource type %q", resourceType)
	}
	if c.cloudName == "" || c.uploadPreset == "" {
		return nil, errors.New("media upload is not configured")
	}

	// 边写表单边上传，文件不在内存里整体缓存
	pr, pw := io.Pipe()
	// 返回时关闭读端，服务端提前响应时写表单的 goroutine 也能退出
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	uploadURL := fmt.Sprintf("%s/v1_1/%s/%s/upload", c.baseURL, c.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	go func() {
		_ = pw.CloseWithError(c.writeForm(mw, r, filename))
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upload media")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, errors.Errorf("upload media: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		SecureURL    string `json:"secure_url"`
		URL          string `json:"url"`
		PublicID     string `json:"public_id"`
		ResourceType string `json:"resource_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode upload response")
	}
	asset := &Asset{URL: out.SecureURL, PublicID: out.PublicID, ResourceType: out.ResourceType}
	if asset.URL == "" {
		asset.URL = out.URL
	}
	if asset.URL == "" {
		return nil, errors.New("upload response has no url")
	}
	if asset.ResourceType == "" {
		asset.ResourceType = resourceType
	}
	return asset, nil
}

func (c *CloudinaryClient) writeForm(mw *multipart.Writer, r io.Reader, filename string) error {
	if err := mw.WriteField("upload_preset", c.uploadPreset); err != nil {
		return err
	}
	if c.folder != "" {
		if err := mw.WriteField("folder", c.folder); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "build upload form")
	}
	if _, err := io.Copy(part, r); err != nil {
		return errors.Wrap(err, "read upload")
	}
	return mw.Close()
}
