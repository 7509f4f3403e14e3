package chessdto

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Engine      bool   `json:"engine"`
	EngineDepth int    `json:"engineDepth,omitempty"`
}

// JoinRoom is the payload of "join-room". Older clients send the room
// credential as adminKey.
type JoinRoom struct {
	RoomID          string      `json:"roomId"`
	PlayerName      string      `json:"playerName"`
	Mode            string      `json:"mode,omitempty"`
	Bot             *BotProfile `json:"bot,omitempty"`
	AdminCredential string      `json:"adminCredential,omitempty"`
	AdminKey        string      `json:"adminKey,omitempty"`
}

// Credential returns whichever credential field was set.
func (j JoinRoom) Credential() string {
	if j.AdminCredential != "" {
		return j.AdminCredential
	}
	return j.AdminKey
}

type MakeMove struct {
	RoomID string    `json:"roomId"`
	Move   MoveInput `json:"move"`
}

type BotMove struct {
	RoomID string      `json:"roomId"`
	Bot    *BotProfile `json:"bot,omitempty"`
}
