package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/infrastructure/secret"
	"github.com/docqa/backend/internal/interfaces/http/response"
)

// SettingsHandler 凭据设置
type SettingsHandler struct {
	secrets secret.Store
	keyName string
	logger  *slog.Logger
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(secrets secret.Store, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		secrets: secrets,
		keyName: cfg.LLM.SecretName,
		logger:  log.NewModuleLogger("settings", "handler"),
	}
}

// SetAPIKeyRequest 设置 API Key 请求
type SetAPIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// SetAPIKey 保存生成服务的 API Key
// POST /api/v1/settings/api-key
func (h *SettingsHandler) SetAPIKey(c *gin.Context) {
	var req SetAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "api_key is required")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "api_key is required")
		return
	}

	if err := h.secrets.Set(c.Request.Context(), h.keyName, key); err != nil {
		h.logger.Error("Failed to store api key", "error", err)
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeInternal, "failed to store api key", err.Error())
		return
	}

	h.logger.Info("API key updated", "key", log.MaskSecret(key))
	response.Success(c, gin.H{"status": "success"})
}

// GetAPIKey 查询是否已配置 API Key，不返回明文
// GET /api/v1/settings/api-key
func (h *SettingsHandler) GetAPIKey(c *gin.Context) {
	response.Success(c, gin.H{"hasKey": h.secrets.Has(c.Request.Context(), h.keyName)})
}

// DeleteAPIKey 删除已保存的 API Key
// DELETE /api/v1/settings/api-key
func (h *SettingsHandler) DeleteAPIKey(c *gin.Context) {
	if err := h.secrets.Delete(c.Request.Context(), h.keyName); err != nil && !errors.Is(err, secret.ErrNotFound) {
		response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeInternal, "failed to delete api key", err.Error())
		return
	}
	response.Success(c, gin.H{"status": "success"})
}
