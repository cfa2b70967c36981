package approuters

import (
	"github.com/kaya2m/Camply-API-sub003/internal/configuration"
	"github.com/kaya2m/Camply-API-sub003/internal/handler"

	"github.com/gin-gonic/gin"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/chat/api")
	chatRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		chatRoute.GET("/conversations", container.MessageHandler.GetConversations)
		chatRoute.POST("/conversations/direct", container.MessageHandler.GetOrCreateDirectConversation)
		chatRoute.POST("/conversations/group", container.MessageHandler.CreateGroupConversation)
		chatRoute.GET("/conversations/:conversationId/messages", container.MessageHandler.GetConversationMessages)
		chatRoute.GET("/conversations/:conversationId/messages/search", container.MessageHandler.SearchConversationMessages)
		chatRoute.GET("/conversations/:conversationId/media", container.MessageHandler.GetConversationMedia)
		chatRoute.PATCH("/conversations/:conversationId/mute", container.MessageHandler.MuteConversation)
		chatRoute.PATCH("/conversations/:conversationId/archive", container.MessageHandler.ArchiveConversation)
		chatRoute.DELETE("/conversations/:conversationId", container.MessageHandler.DeleteConversation)
	}
}
