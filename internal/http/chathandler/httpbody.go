package chathandler

type LoginBody struct {
	UserID      string `json:"user_id"      binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CreateRoomBody struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

type AddMemberBody struct {
	Identity string `json:"identity" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListRoomsQuery struct {
	Limit  int `form:"limit,default=20"  binding:"gte=0,lte=100"`
	Offset int `form:"offset,default=0"  binding:"gte=0"`
}

type HistoryQuery struct {
	Limit  int   `form:"limit,default=50" binding:"gte=0,lte=200"`
	Before int64 `form:"before,default=-1"`
}
