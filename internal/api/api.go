package api

import (
	"net/http"

	campaignHandler "bounty-server/internal/campaign/handler"
	redemptionHandler "bounty-server/internal/redemption/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router             *gin.RouterGroup
	redemptionHandler  redemptionHandler.Handler
	campaignHandler    campaignHandler.Handler
	externalMiddleware []gin.HandlerFunc
}

func New(router *gin.RouterGroup, redemptionHandler redemptionHandler.Handler, campaignHandler campaignHandler.Handler, externalMiddleware ...gin.HandlerFunc) API {
	return API{
		router:             router,
		redemptionHandler:  redemptionHandler,
		campaignHandler:    campaignHandler,
		externalMiddleware: externalMiddleware,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")

	// Claimant-facing surface: redemption attempts and chat webhook events
	externalGroup := apiGroup.Group("/external", a.externalMiddleware...)
	{
		externalGroup.POST("/redeem", a.redemptionHandler.HandleRedeem)
		externalGroup.POST("/chat-events", a.redemptionHandler.HandleChatEvent)
	}

	// Operator-facing surface
	protectedGroup := apiGroup.Group("/protected")
	{
		protectedGroup.POST("/campaigns", a.campaignHandler.HandleCreateCampaign)
		protectedGroup.GET("/campaigns", a.campaignHandler.HandleListCampaigns)
		protectedGroup.GET("/campaigns/:id", a.campaignHandler.HandleGetCampaign)
		protectedGroup.POST("/campaigns/:id/publish", a.campaignHandler.HandlePublishCampaign)
		protectedGroup.PUT("/campaigns/:id/payout-schedule", a.campaignHandler.HandleUpdatePayoutSchedule)
		protectedGroup.GET("/campaigns/:id/report", a.campaignHandler.HandleGetReport)
		protectedGroup.POST("/campaigns/:id/merchant", a.campaignHandler.HandleAttachMerchant)

		protectedGroup.POST("/organizations", a.campaignHandler.HandleCreateOrganization)
		protectedGroup.GET("/organizations/:id", a.campaignHandler.HandleGetOrganization)
		protectedGroup.POST("/organizations/:id/recharge", a.campaignHandler.HandleRechargeOrganization)

		protectedGroup.POST("/merchants", a.campaignHandler.HandleCreateMerchant)
		protectedGroup.PUT("/merchants/:id/status", a.campaignHandler.HandleUpdateMerchantStatus)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
