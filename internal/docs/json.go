package docs

import (
	"encoding/json"
	"fmt"
)

// List is a document slice that round-trips through JSON with the kind
// discriminant, for embedding in persisted state.
type List []Document

func (l List) MarshalJSON() ([]byte, error) {
	return MarshalDocuments(l)
}

func (l *List) UnmarshalJSON(data []byte) error {
	list, err := UnmarshalDocuments(data)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// MarshalDocuments serializes a document list as a JSON array. Every variant
// is plain data, so the default marshaling (which includes the kind
// discriminant from Base) round-trips losslessly.
func MarshalDocuments(list []Document) ([]byte, error) {
	return json.Marshal(list)
}

// UnmarshalDocuments decodes a JSON array produced by MarshalDocuments,
// dispatching each element on its kind discriminant.
func UnmarshalDocuments(data []byte) ([]Document, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(raws))
	for _, raw := range raws {
		d, err := unmarshalDocument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func unmarshalDocument(raw json.RawMessage) (Document, error) {
	var head struct {
		Kind      Kind   `json:"kind"`
		LoginHost string `json:"loginHost"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	var d Document
	switch head.Kind {
	case KindBlank:
		d = &Blank{}
	case KindCluster:
		d = &Cluster{}
	case KindTerminalShell:
		d = &TerminalShell{}
	case KindTshNode:
		// The legacy login-host form shares the kind with the resolved form
		// and is told apart by the loginHost field.
		if head.LoginHost != "" {
			d = &TshNodeWithLoginHost{}
		} else {
			d = &TshNode{}
		}
	case KindKubeExec:
		d = &KubeExec{}
	case KindGateway:
		d = &Gateway{}
	case KindGatewayCLIClient:
		d = &GatewayCLIClient{}
	case KindGatewayKube:
		d = &GatewayKube{}
	case KindAccessRequests:
		d = &AccessRequests{}
	case KindConnectMyComputer:
		d = &ConnectMyComputer{}
	case KindAuthorizeWebSession:
		d = &AuthorizeWebSession{}
	case KindDesktopSession:
		d = &DesktopSession{}
	case KindVnetDiag:
		d = &VnetDiag{}
	case KindVnetInfo:
		d = &VnetInfo{}
	default:
		return nil, fmt.Errorf("docs: unknown document kind %q", head.Kind)
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	return d, nil
}
