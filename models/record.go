package models

// Record type names and subscription ids are part of the wire contract
// and must stay stable across app versions: push routing keys off the
// subscription id and records are looked up by type.
const (
	FoodRecordType      = "FoodItemRecord"
	ContainerRecordType = "ContainerRecord"

	FoodSubscriptionID      = "fooditem-changes-subscription"
	ContainerSubscriptionID = "container-changes-subscription"
)

// Record is the wire form of an entity in the cloud store. Fields holds a
// flat set of named scalars; a binary image is referenced by asset key as
// {"asset": "<key>"} and never inlined.
type Record struct {
	Type      string         `json:"recordType"`
	ID        string         `json:"recordID"`
	ChangeTag string         `json:"changeTag,omitempty"`
	Fields    map[string]any `json:"fields"`

	// AssetFile points at a temporary file staged for upload by the
	// codec. It never travels on the wire; whoever uploads it removes
	// the file once the save completes or fails.
	AssetFile string `json:"-"`
	// AssetData holds downloaded asset bytes on the fetch path.
	AssetData []byte `json:"-"`
}

// AssetKey returns the asset reference stored in the image field, or ""
// when the record carries no image.
func (r *Record) AssetKey() string {
	ref, ok := r.Fields["image"].(map[string]any)
	if !ok {
		return ""
	}
	key, _ := ref["asset"].(string)
	return key
}

func (r *Record) SetAssetKey(key string) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields["image"] = map[string]any{"asset": key}
}

// RecordPage is one page of a fetch-all query.
type RecordPage struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

type SaveResult struct {
	ChangeTag string `json:"changeTag"`
}

type BatchDeleteRequest struct {
	Type string   `json:"recordType"`
	IDs  []string `json:"recordIDs"`
}

// SubscriptionInfo describes a standing all-records-of-type query that
// fires a silent push on create/update/delete.
type SubscriptionInfo struct {
	ID         string `json:"subscriptionID"`
	RecordType string `json:"recordType"`
	Silent     bool   `json:"silent"`
}

// ChangePayload is the push notification body routed to devices when a
// record changes. ContentAvailable marks silent background delivery.
type ChangePayload struct {
	SubscriptionID   string `json:"subscriptionID"`
	RecordType       string `json:"recordType"`
	RecordID         string `json:"recordID"`
	Operation        string `json:"operation"` // "create" | "update" | "delete"
	ContentAvailable bool   `json:"contentAvailable"`
	OriginDevice     string `json:"originDevice,omitempty"`
}

// SnapshotItem carries one food item over the peer session. Only the
// fields both devices agree on travel; device-local state stays home.
type SnapshotItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CarbsPer100g *float64 `json:"carbsPer100g,omitempty"`
	GramsPerDl   *float64 `json:"gramsPerDl,omitempty"`
	StyckPerGram *float64 `json:"styckPerGram,omitempty"`
}

// FoodSnapshot is a whole-list transfer pushed opportunistically to the
// companion device, bypassing the cloud path entirely.
type FoodSnapshot struct {
	FoodList []SnapshotItem `json:"foodList"`
}
