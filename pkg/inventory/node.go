package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NodeRecord is one entry of the inventory's nodes object, keyed by ip.
type NodeRecord struct {
	IsValidator bool           `json:"is_validator"`
	Stake       Stake          `json:"stake"`
	Address     string         `json:"address"`
	ExtraInfo   map[string]any `json:"extra_info"`
}

// Role returns extra_info.role lower-cased, or "" when absent.
func (n NodeRecord) Role() string {
	if n.ExtraInfo == nil {
		return ""
	}
	if s, ok := n.ExtraInfo["role"].(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return ""
}

// IsActive returns extra_info.is_active. ok is false when the flag is missing or not a bool.
func (n NodeRecord) IsActive() (active bool, ok bool) {
	if n.ExtraInfo == nil {
		return false, false
	}
	active, ok = n.ExtraInfo["is_active"].(bool)
	return active, ok
}

// Entry pairs an ip with its record.
type Entry struct {
	IP   string
	Node NodeRecord
}

// Nodes is the inventory's ip -> record object with the document's key order preserved,
// so that a run over the same document always visits ips in the same sequence.
type Nodes struct {
	entries []Entry
	index   map[string]int
}

// NewNodes builds a Nodes value from entries in the given order.
func NewNodes(entries ...Entry) Nodes {
	var n Nodes
	for _, e := range entries {
		n.Set(e.IP, e.Node)
	}
	return n
}

// Set adds ip, or replaces its record in place when already present.
func (n *Nodes) Set(ip string, rec NodeRecord) {
	if n.index == nil {
		n.index = map[string]int{}
	}
	if i, ok := n.index[ip]; ok {
		n.entries[i].Node = rec
		return
	}
	n.index[ip] = len(n.entries)
	n.entries = append(n.entries, Entry{IP: ip, Node: rec})
}

// Get returns the record for ip.
func (n Nodes) Get(ip string) (NodeRecord, bool) {
	i, ok := n.index[ip]
	if !ok {
		return NodeRecord{}, false
	}
	return n.entries[i].Node, true
}

// Len returns the number of distinct ips.
func (n Nodes) Len() int { return len(n.entries) }

// Entries returns the entries in document order. The slice must not be modified.
func (n Nodes) Entries() []Entry { return n.entries }

// IPs returns the ips in document order.
func (n Nodes) IPs() []string {
	out := make([]string, len(n.entries))
	for i, e := range n.entries {
		out[i] = e.IP
	}
	return out
}

// UnmarshalJSON walks the object token by token to keep key order.
func (n *Nodes) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("nodes: expected object, got %v", tok)
	}

	*n = Nodes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		ip, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("nodes: expected ip key, got %v", keyTok)
		}
		ip = strings.TrimSpace(ip)
		var rec NodeRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("nodes[%s]: %w", ip, err)
		}
		n.Set(ip, rec)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes the object back in document order.
func (n Nodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range n.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.IP)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Node)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
