package acl

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CommandRunner executes switch CLI commands and returns one JSON result
// per command. Satisfied by EapiClient; tests substitute a fake.
type CommandRunner interface {
	RunCmds(ctx context.Context, cmds []string) ([]json.RawMessage, error)
}

// EapiClient is a minimal JSON-RPC client for the switch Command API
// ("/command-api" over HTTPS).
type EapiClient struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
}

// EapiConfig configures an EapiClient.
type EapiConfig struct {
	// Endpoint is the full URL, e.g. "https://switch1/command-api".
	Endpoint string
	Username string
	Password string
	// InsecureSkipVerify disables TLS verification (lab switches with
	// self-signed certs).
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// NewEapiClient creates a Command API client.
func NewEapiClient(cfg EapiConfig) *EapiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &EapiClient{
		endpoint: cfg.Endpoint,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type eapiRequest struct {
	Jsonrpc string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  eapiParams `json:"params"`
	ID      string     `json:"id"`
}

type eapiParams struct {
	Version int      `json:"version"`
	Cmds    []string `json:"cmds"`
	Format  string   `json:"format"`
}

type eapiResponse struct {
	Result []json.RawMessage `json:"result"`
	Error  *EapiError        `json:"error"`
}

// EapiError is a Command API protocol error. Code 1002 means a CLI command
// was rejected.
type EapiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *EapiError) Error() string {
	return fmt.Sprintf("command api error %d: %s", e.Code, e.Message)
}

const eapiInvalidCommand = 1002

// RunCmds executes commands in order and returns their JSON results.
func (c *EapiClient) RunCmds(ctx context.Context, cmds []string) ([]json.RawMessage, error) {
	reqBody, err := json.Marshal(eapiRequest{
		Jsonrpc: "2.0",
		Method:  "runCmds",
		Params:  eapiParams{Version: 1, Cmds: cmds, Format: "json"},
		ID:      "sixfence",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("command api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("command api: unexpected status %s", resp.Status)
	}

	var parsed eapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("command api: decoding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, parsed.Error
	}
	return parsed.Result, nil
}

// EapiStore programs IPv6 ACLs through the switch Command API by rendering
// CLI configuration. Apply issues a "no ipv6 access-list" first so the ACL
// is rebuilt rather than appended to.
type EapiStore struct {
	runner CommandRunner
}

// NewEapiStore creates a Command API backed ACL store.
func NewEapiStore(runner CommandRunner) *EapiStore {
	return &EapiStore{runner: runner}
}

// Supports probes for IPv6 ACL capability by running the summary show
// command; platforms without the feature reject it as an invalid command.
func (s *EapiStore) Supports(ctx context.Context) (bool, error) {
	_, err := s.runner.RunCmds(ctx, []string{"enable", "show ipv6 access-list summary"})
	if err != nil {
		var eapiErr *EapiError
		if errors.As(err, &eapiErr) && eapiErr.Code == eapiInvalidCommand {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Apply rebuilds the named ACL and binds it to the port's ingress.
func (s *EapiStore) Apply(ctx context.Context, port string, a ACL) error {
	cmds := []string{
		"enable",
		"configure",
		"no ipv6 access-list " + a.Name,
		"ipv6 access-list " + a.Name,
	}
	for _, r := range a.Rules {
		cmds = append(cmds, fmt.Sprintf("%d permit ipv6 %s any", r.Seq, r.Source))
	}
	cmds = append(cmds,
		"exit",
		"interface "+port,
		fmt.Sprintf("ipv6 traffic-filter %s in", a.Name),
	)
	if _, err := s.runner.RunCmds(ctx, cmds); err != nil {
		return fmt.Errorf("installing acl %s on %s: %w", a.Name, port, err)
	}
	return nil
}

// Remove deletes the port's ingress binding and the named ACL.
// "no" forms succeed whether or not the config is present.
func (s *EapiStore) Remove(ctx context.Context, port, name string) error {
	cmds := []string{
		"enable",
		"configure",
		"interface " + port,
		fmt.Sprintf("no ipv6 traffic-filter %s in", name),
		"exit",
		"no ipv6 access-list " + name,
	}
	if _, err := s.runner.RunCmds(ctx, cmds); err != nil {
		return fmt.Errorf("removing acl %s from %s: %w", name, port, err)
	}
	return nil
}

// aclSummary mirrors the relevant slice of "show ipv6 access-list summary".
type aclSummary struct {
	AclList []struct {
		Name                   string `json:"name"`
		ConfiguredIngressIntfs []struct {
			Name string `json:"name"`
		} `json:"configuredIngressIntfs"`
	} `json:"aclList"`
}

// Sweep removes every controller-named ACL and its ingress bindings.
func (s *EapiStore) Sweep(ctx context.Context, prefix string) (int, error) {
	results, err := s.runner.RunCmds(ctx, []string{"enable", "show ipv6 access-list summary"})
	if err != nil {
		return 0, fmt.Errorf("listing acls: %w", err)
	}
	if len(results) < 2 {
		return 0, fmt.Errorf("listing acls: short response")
	}

	var summary aclSummary
	if err := json.Unmarshal(results[1], &summary); err != nil {
		return 0, fmt.Errorf("parsing acl summary: %w", err)
	}

	cmds := []string{"enable", "configure"}
	removed := 0
	for _, entry := range summary.AclList {
		if !Matches(prefix, entry.Name) {
			continue
		}
		for _, intf := range entry.ConfiguredIngressIntfs {
			cmds = append(cmds,
				"interface "+intf.Name,
				fmt.Sprintf("no ipv6 traffic-filter %s in", entry.Name),
				"exit",
			)
		}
		cmds = append(cmds, "no ipv6 access-list "+entry.Name)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if _, err := s.runner.RunCmds(ctx, cmds); err != nil {
		return 0, fmt.Errorf("sweeping acls: %w", err)
	}
	return removed, nil
}

// renderRules is used by the check subcommand to preview an ACL as CLI.
func renderRules(a ACL) string {
	var b strings.Builder
	b.WriteString("ipv6 access-list " + a.Name + "\n")
	for _, r := range a.Rules {
		fmt.Fprintf(&b, "   %d permit ipv6 %s any\n", r.Seq, r.Source)
	}
	return b.String()
}

// Render returns the CLI representation of a, for logs and previews.
func Render(a ACL) string {
	return renderRules(a)
}
