package handlers

import "travellog/mapview"

type WSMessageType string

const (
	// Inbound
	WSMessageTypeLayout WSMessageType = "layout"
	WSMessageTypeClick  WSMessageType = "click"
	WSMessageTypeClear  WSMessageType = "clear"
	WSMessageTypeEnter  WSMessageType = "enter"
	WSMessageTypeLeave  WSMessageType = "leave"
	// Outbound, besides the view event types
	WSMessageTypeState WSMessageType = "state"
	WSMessageTypeError WSMessageType = "error"
)

// WSMessage is what clients send over a view socket
type WSMessage struct {
	Type   WSMessageType `json:"type"`
	Width  int           `json:"width,omitempty"`
	Height int           `json:"height,omitempty"`
	Lat    *float64      `json:"lat,omitempty"`
	Lng    *float64      `json:"lng,omitempty"`
}

type WSStateMessage struct {
	Type  WSMessageType `json:"type"`
	State mapview.State `json:"state"`
}

type WSErrorMessage struct {
	Type  WSMessageType `json:"type"`
	Error string        `json:"error"`
}
