package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/transfer-service/internal/application"
	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/middleware"
)

type commitDesignatedRequest struct {
	SourcePalletIDs        []string `json:"sourcePalletIds" binding:"dive,container_id"`
	DestinationSlotIDs     []string `json:"destinationSlotIds" binding:"dive,slot_id"`
	SourcePalletQuantities []int    `json:"sourcePalletQuantities,omitempty" binding:"omitempty,dive,gt=0"`
}

type packLineRequest struct {
	SourceKind string `json:"sourceKind" binding:"required,source_kind"`
	SourceID   string `json:"sourceId" binding:"required,container_id"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

type assignCarrierRequest struct {
	EmptyPalletID string `json:"emptyPalletId" binding:"required,container_id"`
}

type assignDestinationRequest struct {
	SlotID string `json:"slotId" binding:"required,slot_id"`
}

// registerRoutes mounts the transfer API under /api/v1
func registerRoutes(router *gin.Engine, service *application.TransferService, logger *logging.Logger) {
	apiV1 := router.Group("/api/v1")

	orders := apiV1.Group("/orders/:orderId")
	{
		orders.GET("/reconciliation", getOrderReconciliationHandler(service, logger))

		item := orders.Group("/items/:itemCode")
		item.POST("/designated", commitDesignatedHandler(service, logger))
		item.GET("/designated", getDesignatedHandler(service, logger))
		item.GET("/reconciliation", getReconciliationHandler(service, logger))

		residual := item.Group("/residual")
		residual.GET("", getResidualHandler(service, logger))
		residual.POST("/complete", completeResidualHandler(service, logger))
		residual.POST("/reopen", reopenResidualHandler(service, logger))

		session := residual.Group("/session")
		session.GET("", getSessionHandler(service, logger))
		session.DELETE("", discardSessionHandler(service, logger))
		session.POST("/lines", packLineHandler(service, logger))
		session.DELETE("/lines/:index", removeLineHandler(service, logger))
		session.POST("/carrier", assignCarrierHandler(service, logger))
		session.POST("/destination", assignDestinationHandler(service, logger))
		session.POST("/confirm", confirmResidualHandler(service, logger))
	}

	apiV1.GET("/slots/zones/:zone", slotGridHandler(service, logger))
}

func itemParams(c *gin.Context) (string, string) {
	return c.Param("orderId"), c.Param("itemCode")
}

func commitDesignatedHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req commitDesignatedRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		orderID, itemCode := itemParams(c)
		result, err := service.CommitDesignatedTransfer(c.Request.Context(), application.CommitDesignatedCommand{
			OrderID:                orderID,
			ItemCode:               itemCode,
			SourcePalletIDs:        req.SourcePalletIDs,
			DestinationSlotIDs:     req.DestinationSlotIDs,
			SourcePalletQuantities: req.SourcePalletQuantities,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func getDesignatedHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		transfer, err := service.GetDesignatedTransfer(c.Request.Context(), application.GetItemQuery{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, transfer)
	}
}

func getSessionHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		session, err := service.GetPackingSession(c.Request.Context(), application.GetItemQuery{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func packLineHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req packLineRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		orderID, itemCode := itemParams(c)
		session, err := service.PackResidualLine(c.Request.Context(), application.PackLineCommand{
			OrderID:    orderID,
			ItemCode:   itemCode,
			SourceKind: domain.SourceKind(req.SourceKind),
			SourceID:   req.SourceID,
			Quantity:   req.Quantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func removeLineHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 {
			responder.RespondWithAppError(errors.ErrValidation("line index must be a non-negative integer"))
			return
		}

		orderID, itemCode := itemParams(c)
		session, err := service.RemovePackedLine(c.Request.Context(), application.RemovePackedLineCommand{
			OrderID:  orderID,
			ItemCode: itemCode,
			Index:    index,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func assignCarrierHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req assignCarrierRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		orderID, itemCode := itemParams(c)
		session, err := service.AssignCarrier(c.Request.Context(), application.AssignCarrierCommand{
			OrderID:       orderID,
			ItemCode:      itemCode,
			EmptyPalletID: req.EmptyPalletID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func assignDestinationHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req assignDestinationRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		orderID, itemCode := itemParams(c)
		session, err := service.AssignDestination(c.Request.Context(), application.AssignDestinationCommand{
			OrderID:  orderID,
			ItemCode: itemCode,
			SlotID:   req.SlotID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func confirmResidualHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		result, err := service.ConfirmResidual(c.Request.Context(), application.ItemCommand{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		status := http.StatusOK
		if result.FirstBatch {
			status = http.StatusCreated
		}
		c.JSON(status, result)
	}
}

func discardSessionHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		result, err := service.DiscardPackingSession(c.Request.Context(), application.ItemCommand{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getResidualHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		transfer, err := service.GetResidualTransfer(c.Request.Context(), application.GetItemQuery{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, transfer)
	}
}

func completeResidualHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		transfer, err := service.CompleteResidualTransfer(c.Request.Context(), application.ItemCommand{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, transfer)
	}
}

func reopenResidualHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		transfer, err := service.ReopenResidualTransfer(c.Request.Context(), application.ItemCommand{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, transfer)
	}
}

func getReconciliationHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orderID, itemCode := itemParams(c)
		rec, err := service.GetReconciliation(c.Request.Context(), application.GetItemQuery{OrderID: orderID, ItemCode: itemCode})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, rec)
	}
}

func getOrderReconciliationHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		lines, err := service.GetOrderReconciliation(c.Request.Context(), application.GetOrderQuery{OrderID: c.Param("orderId")})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId": c.Param("orderId"),
			"lines":   lines,
		})
	}
}

func slotGridHandler(service *application.TransferService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		grid, err := service.QuerySlotGrid(c.Request.Context(), application.QuerySlotGridQuery{
			Zone:           c.Param("zone"),
			ViewerOrderID:  c.Query("orderId"),
			ViewerItemCode: c.Query("itemCode"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, grid)
	}
}
