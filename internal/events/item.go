package events

// ItemAdded is emitted when the catalog reports a newly created library item.
// Metadata enrichment has usually not finished when this fires.
type ItemAdded struct {
	BaseEvent
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ItemAnnounced is emitted when a pending item is promoted to the send queue
// for one subscriber.
type ItemAnnounced struct {
	BaseEvent
	ItemID     string `json:"item_id"`
	Subscriber string `json:"subscriber"`
	Title      string `json:"title"`
	Fallback   bool   `json:"fallback"`
	Retries    int    `json:"retries"`
}
