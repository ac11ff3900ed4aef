package httpgw

import (
	"context"
	"net/http"

	"restorable.io/restorectl/internal/checksum"
)

// ChecksumPath is the verification endpoint exposed by both services.
const ChecksumPath = "/internal/special/backup/verify-checksum"

// ChecksumBackend delegates verification to one service.
type ChecksumBackend struct {
	client  *Client
	service Service
}

var _ checksum.Backend = (*ChecksumBackend)(nil)

// ChecksumBackend returns the verification backend hosted by svc.
func (c *Client) ChecksumBackend(svc Service) *ChecksumBackend {
	return &ChecksumBackend{client: c, service: svc}
}

// VerifyChecksum posts the snapshot and storage slug and returns the service verdict.
func (b *ChecksumBackend) VerifyChecksum(ctx context.Context, req checksum.Request) (checksum.Response, error) {
	var resp checksum.Response
	if err := b.client.call(ctx, b.service, http.MethodPost, ChecksumPath, req, &resp); err != nil {
		return checksum.Response{}, err
	}
	return resp, nil
}
