package chain

import (
	"math/big"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// MIST per SUI.
const MistPerSui = 1_000_000_000

// Balance is the suix_getBalance result.
type Balance struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

// Total parses TotalBalance, which the node reports as a decimal string in MIST.
func (b Balance) Total() (*big.Int, error) {
	if b.TotalBalance == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(b.TotalBalance, 10)
	if !ok {
		return nil, errors.Errorf("malformed total balance %q", b.TotalBalance)
	}
	return v, nil
}

// ObjectFilter narrows suix_getOwnedObjects. Only StructType is used.
type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

// ObjectOptions selects which object fields the node returns.
type ObjectOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
	ShowDisplay bool `json:"showDisplay,omitempty"`
}

type objectQuery struct {
	Filter  *ObjectFilter  `json:"filter,omitempty"`
	Options *ObjectOptions `json:"options,omitempty"`
}

type objectsPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type objectResponse struct {
	Data  *Object        `json:"data"`
	Error map[string]any `json:"error,omitempty"`
}

// Object is one owned object as returned by the node.
type Object struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Digest   string         `json:"digest"`
	Type     string         `json:"type,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Display  *Display       `json:"display,omitempty"`
}

// Display is the object's rendered display metadata.
type Display struct {
	Data  map[string]string `json:"data"`
	Error any               `json:"error"`
}

// Fields returns the Move struct fields of a parsed object, or an empty map.
func (o Object) Fields() map[string]any {
	fields, ok := o.Content["fields"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return fields
}

// DecodeFields decodes the Move struct fields into out using mapstructure
// tags. Move integers wider than 32 bits arrive as strings, so decoding is
// weakly typed.
func (o Object) DecodeFields(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "build field decoder")
	}
	return errors.Wrap(dec.Decode(o.Fields()), "decode object fields")
}
