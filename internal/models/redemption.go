package models

// RedemptionResult is returned to the scanning device.
type RedemptionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   string `json:"user_id,omitempty"`
	Day      string `json:"day,omitempty"`
	MealType string `json:"meal_type,omitempty"`
	Dish     string `json:"dish,omitempty"`
}
