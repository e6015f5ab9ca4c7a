package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/sirupsen/logrus"
)

const (
	bloxrouteSubmitPath = "/api/v2/submit"
	bloxrouteStatusPath = "/api/v2/transaction"
)

type (
	bloxrouteTransaction struct {
		Content   string `json:"content"`
		IsCleanup bool   `json:"isCleanup"`
	}

	bloxrouteSubmitRequest struct {
		Transaction            bloxrouteTransaction `json:"transaction"`
		FrontRunningProtection bool                 `json:"frontRunningProtection"`
		UseStakedRPCs          bool                 `json:"useStakedRPCs"`
	}

	bloxrouteSubmitResponse struct {
		Signature string `json:"signature"`
	}

	bloxrouteStatusResponse struct {
		Status string `json:"status"`
	}
)

// BloxrouteRelay submits through the trader API and can poll the result.
type BloxrouteRelay struct {
	baseURL string
	auth    string
	client  *http.Client
	log     *logrus.Logger
}

func NewBloxrouteRelay(baseURL, auth string, timeout time.Duration, log *logrus.Logger) *BloxrouteRelay {
	if baseURL == "" {
		baseURL = common.BloxrouteRpc
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BloxrouteRelay{
		baseURL: baseURL,
		auth:    auth,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (r *BloxrouteRelay) Kind() types.RelayKind {
	return types.RelayPriority
}

func (r *BloxrouteRelay) Submit(ctx context.Context, tx *pumpfun.SignedTransaction) (*types.RelayReceipt, error) {
	body, err := json.Marshal(&bloxrouteSubmitRequest{
		Transaction: bloxrouteTransaction{
			Content:   base64.StdEncoding.EncodeToString(tx.Raw),
			IsCleanup: false,
		},
		FrontRunningProtection: false,
		UseStakedRPCs:          true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+bloxrouteSubmitPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out bloxrouteSubmitResponse
	if err = r.do(req, &out); err != nil {
		metrics.RelaySubmissionsTotal.WithLabelValues(string(types.RelayPriority), "error").Inc()
		return nil, err
	}
	if out.Signature == "" {
		metrics.RelaySubmissionsTotal.WithLabelValues(string(types.RelayPriority), "error").Inc()
		return nil, fmt.Errorf("%w: %s: empty signature", types.ErrRelayRejected, types.RelayPriority)
	}
	metrics.RelaySubmissionsTotal.WithLabelValues(string(types.RelayPriority), "accepted").Inc()

	r.log.WithField("signature", out.Signature).Info("transaction sent")

	return &types.RelayReceipt{
		Relay:         types.RelayPriority,
		SubmissionID:  out.Signature,
		SubmittedAtMs: time.Now().UnixMilli(),
	}, nil
}

func (r *BloxrouteRelay) PollStatus(ctx context.Context, submissionID string) (types.TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+bloxrouteStatusPath+"?"+submissionID, nil)
	if err != nil {
		return types.TxStatusFailed, err
	}

	var out bloxrouteStatusResponse
	if err = r.do(req, &out); err != nil {
		return types.TxStatusFailed, err
	}

	switch out.Status {
	case "success":
		return types.TxStatusSuccess, nil
	case "", "pending":
		return types.TxStatusPending, nil
	default:
		return types.TxStatusFailed, nil
	}
}

func (r *BloxrouteRelay) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", r.auth)

	resp, err := r.client.Do(req)
	if err != nil {
		return mapError(types.RelayPriority, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapError(types.RelayPriority, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapError(types.RelayPriority, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data)))
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrRelayRejected, types.RelayPriority, err)
	}
	return nil
}
