package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// InitFirestore 使用服务账号文件连接 firestore，projectID 为空时从凭证中推断
func InitFirestore(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	return firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
}
