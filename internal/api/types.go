package api

// Wire types for the HackLidoLearn REST API. Every endpoint gets an explicit
// shape; nothing downstream reads loose maps.

type User struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Username       string   `json:"username"`
	Role           string   `json:"role"`
	XP             int      `json:"xp"`
	Level          int      `json:"level"`
	Streak         int      `json:"streak"`
	Badges         []string `json:"badges"`
	CompletedRooms []string `json:"completed_rooms"`
	CreatedAt      string   `json:"created_at"`
}

func (u User) IsAdmin() bool { return u.Role == "admin" }

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Roadmap struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Rooms       []string `json:"rooms"`
	Icon        string   `json:"icon"`
	Order       int      `json:"order"`
}

type Task struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Room struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Difficulty   string   `json:"difficulty"`
	Category     string   `json:"category"`
	RoomType     string   `json:"room_type"`
	Content      string   `json:"content"`
	Tasks        []Task   `json:"tasks"`
	XPReward     int      `json:"xp_reward"`
	HasLab       bool     `json:"has_lab"`
	LabType      string   `json:"lab_type"`
	DockerImage  string   `json:"docker_image"`
	WebAppURL    string   `json:"web_app_url"`
	CodeLanguage string   `json:"code_language"`
	RoadmapID    string   `json:"roadmap_id"`
	Flags        []string `json:"flags,omitempty"`
}

// RoomFilter narrows GET /rooms. Zero values mean no filter.
type RoomFilter struct {
	RoadmapID string
	Category  string
}

type LabSession struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	RoomID      string `json:"room_id"`
	ContainerID string `json:"container_id"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at"`
}

type ExecResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

type Challenge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Language    string `json:"language"`
	StarterCode string `json:"starter_code"`
	XPReward    int    `json:"xp_reward"`
}

type CodeRunResult struct {
	Output   string `json:"output"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// CombinedOutput returns the best available program output: the merged
// stream when the executor provides one, otherwise stdout.
func (r CodeRunResult) CombinedOutput() string {
	if r.Output != "" {
		return r.Output
	}
	return r.Stdout
}

type FlagResult struct {
	Correct  bool   `json:"correct"`
	Message  string `json:"message"`
	XPEarned int    `json:"xp_earned"`
}

type LeaderboardEntry struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	XP       int      `json:"xp"`
	Level    int      `json:"level"`
	Badges   []string `json:"badges"`
}

type Profile struct {
	User
	CompletedRoomsCount int `json:"completed_rooms_count"`
}

type Progress struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	RoomID         string   `json:"room_id"`
	Completed      bool     `json:"completed"`
	CompletedTasks []int    `json:"completed_tasks"`
	SubmittedFlags []string `json:"submitted_flags"`
	StartedAt      string   `json:"started_at"`
	CompletedAt    string   `json:"completed_at"`
}

type AdminStats struct {
	TotalUsers     int `json:"total_users"`
	TotalRooms     int `json:"total_rooms"`
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
}

type Question struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Question  string `json:"question"`
	Reply     string `json:"reply"`
	RepliedBy string `json:"replied_by"`
	CreatedAt string `json:"created_at"`
	RepliedAt string `json:"replied_at"`
}
