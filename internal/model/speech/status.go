package speech

// SlotStatus 健康检查中单个槽位的状态，不包含任何密钥。
type SlotStatus struct {
	Slot       Slot   `json:"slot"`
	AuthMode   string `json:"authMode"`
	ServiceURL string `json:"serviceUrl"`
	Ready      bool   `json:"ready"`
}
