package request

// RoomExistsRequest is the request body for checking a room code
type RoomExistsRequest struct {
	RoomID string `json:"roomId"`
}
