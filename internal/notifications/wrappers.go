package notifications

import (
	"context"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"marketplace-chat/internal/models"
)

var rupiah = message.NewPrinter(language.Indonesian)

// FormatPrice renders an amount with Indonesian digit grouping, e.g. 1.250.000.
func FormatPrice(amount int64) string {
	return rupiah.Sprintf("%d", amount)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Chat tells recipientID that senderName wrote in the conversation.
func (d *Dispatcher) Chat(ctx context.Context, recipientID int64, senderName string, conversationID int64) (models.Notification, error) {
	return d.Create(ctx, recipientID, models.NotificationChat, map[string]string{
		"sender_name":     senderName,
		"conversation_id": id(conversationID),
	})
}

// Like tells the seller that a user liked their product.
func (d *Dispatcher) Like(ctx context.Context, sellerID int64, userName, productName string, productID int64) (models.Notification, error) {
	return d.Create(ctx, sellerID, models.NotificationLike, map[string]string{
		"user_name":    userName,
		"product_name": productName,
		"product_id":   id(productID),
	})
}

// Offer tells the seller about a price offer.
func (d *Dispatcher) Offer(ctx context.Context, sellerID int64, buyerName, productName string, productID, price int64) (models.Notification, error) {
	return d.Create(ctx, sellerID, models.NotificationOffer, map[string]string{
		"buyer_name":   buyerName,
		"product_name": productName,
		"product_id":   id(productID),
		"price":        FormatPrice(price),
	})
}

// TransactionCreated tells the buyer their transaction was opened.
func (d *Dispatcher) TransactionCreated(ctx context.Context, buyerID, transactionID int64, transactionCode string) (models.Notification, error) {
	return d.Create(ctx, buyerID, models.NotificationTransaction, map[string]string{
		"transaction_id":   id(transactionID),
		"transaction_code": transactionCode,
		"status":           "berhasil dibuat",
	})
}

// PaymentSuccess tells a party that payment for the transaction settled.
func (d *Dispatcher) PaymentSuccess(ctx context.Context, userID, transactionID int64, transactionCode string) (models.Notification, error) {
	return d.Create(ctx, userID, models.NotificationTransaction, map[string]string{
		"title":            "Pembayaran Berhasil",
		"transaction_id":   id(transactionID),
		"transaction_code": transactionCode,
		"status":           "telah dibayar",
	})
}

// ProductSold tells the seller that a product was bought.
func (d *Dispatcher) ProductSold(ctx context.Context, sellerID int64, productName string, transactionID int64, transactionCode string) (models.Notification, error) {
	return d.Create(ctx, sellerID, models.NotificationTransaction, map[string]string{
		"title":            "Produk Terjual",
		"message":          "Produk {product_name} terjual melalui transaksi {transaction_code}",
		"product_name":     productName,
		"transaction_id":   id(transactionID),
		"transaction_code": transactionCode,
	})
}

// SystemMessage sends free text. An empty link keeps the catalog default.
func (d *Dispatcher) SystemMessage(ctx context.Context, userID int64, text, link string) (models.Notification, error) {
	data := map[string]string{"message": text}
	if link != "" {
		data["link"] = link
	}
	return d.Create(ctx, userID, models.NotificationSystem, data)
}

// ReportResolved tells the reporter how their report was handled.
func (d *Dispatcher) ReportResolved(ctx context.Context, reporterID, reportID int64, resolution string) (models.Notification, error) {
	return d.Create(ctx, reporterID, models.NotificationSystem, map[string]string{
		"title":      "Laporan Ditindaklanjuti",
		"message":    "Laporan #{report_id} telah ditinjau: {resolution}",
		"report_id":  id(reportID),
		"resolution": resolution,
	})
}
