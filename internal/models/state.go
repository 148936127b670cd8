package models

type UserState struct {
	UserID      int64                  `json:"user_id"`
	CurrentStep string                 `json:"current_step"`
	TempData    map[string]interface{} `json:"temp_data"`
}

func (s *UserState) GetString(key string) string {
	if s.TempData == nil {
		return ""
	}
	val, ok := s.TempData[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

// GetStrings восстанавливает список строк. После round-trip через JSON
// (Redis) списки приходят как []interface{}.
func (s *UserState) GetStrings(key string) []string {
	if s.TempData == nil {
		return nil
	}
	val, ok := s.TempData[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []interface{}:
		var res []string
		for _, item := range v {
			if str, ok := item.(string); ok {
				res = append(res, str)
			}
		}
		return res
	default:
		return nil
	}
}

func (s *UserState) GetInt64(key string) int64 {
	if s.TempData == nil {
		return 0
	}
	val, ok := s.TempData[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}
