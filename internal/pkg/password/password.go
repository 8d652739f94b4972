package password

import "golang.org/x/crypto/bcrypt"

// Hash 对明文密码做 bcrypt 哈希。
//
// 每次调用生成随机盐，同一明文两次哈希结果不同。
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify 校验明文与摘要是否匹配。不匹配只返回 false，不返回错误。
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
