package pdfinvoice

var Decrypt = decrypt
